package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

const productsPath = dashboardPrefix + "/products"

// ListProducts returns every product matching filter. A response without a
// products list yields an empty slice.
func (c *Client) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	query := url.Values{}
	if filter.Category != "" {
		query.Set("category", filter.Category)
	}
	if filter.Status != "" {
		query.Set("status", filter.Status)
	}

	var body struct {
		Products json.RawMessage `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, productsPath, query, nil, &body); err != nil {
		return nil, err
	}
	return decodeList[Product](c.log, "products", body.Products), nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var p Product
	if err := c.do(ctx, http.MethodGet, idPath(productsPath, id), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	var p Product
	if err := c.do(ctx, http.MethodPost, productsPath, nil, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*Product, error) {
	var p Product
	if err := c.do(ctx, http.MethodPut, idPath(productsPath, id), nil, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, idPath(productsPath, id), nil, nil, nil)
}
