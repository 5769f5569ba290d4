package dashboard

import (
	"slices"
	"strings"
	"time"

	"github.com/livecommerce/console/internal/backend"
	"github.com/livecommerce/console/internal/emotion"
	"github.com/livecommerce/console/internal/lifecycle"
	"github.com/livecommerce/console/internal/state"
)

const previewLength = 150

// Renderer turns the cached state into view models. It holds no state of its own.
type Renderer struct {
	state     *state.AppState
	vocab     *emotion.Vocabulary
	lifecycle *lifecycle.Controller
}

func NewRenderer(st *state.AppState, vocab *emotion.Vocabulary, lc *lifecycle.Controller) *Renderer {
	if vocab == nil {
		vocab = emotion.Default()
	}
	return &Renderer{state: st, vocab: vocab, lifecycle: lc}
}

type ProductCard struct {
	ID                 int64    `json:"id"`
	SKU                string   `json:"sku"`
	Name               string   `json:"name"`
	Category           string   `json:"category,omitempty"`
	Brand              string   `json:"brand,omitempty"`
	Status             string   `json:"status,omitempty"`
	Price              float64  `json:"price"`
	OriginalPrice      *float64 `json:"original_price,omitempty"`
	DiscountPercentage int      `json:"discount_percentage,omitempty"`
	OnSale             bool     `json:"on_sale"`
	ScriptCount        int      `json:"script_count"`
	MP3Count           int      `json:"mp3_count"`
	VideoCount         int      `json:"video_count"`
}

type ProductGrid struct {
	Products  []ProductCard `json:"products"`
	Total     int           `json:"total"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (r *Renderer) ProductGrid() ProductGrid {
	products := r.state.Products()
	cards := make([]ProductCard, 0, len(products))
	for _, p := range products {
		cards = append(cards, ProductCard{
			ID:                 p.ID,
			SKU:                p.SKU,
			Name:               p.Name,
			Category:           p.Category,
			Brand:              p.Brand,
			Status:             p.Status,
			Price:              p.Price,
			OriginalPrice:      p.OriginalPrice,
			DiscountPercentage: p.DiscountPercentage,
			OnSale:             p.OnSale(),
			ScriptCount:        p.ScriptCount,
			MP3Count:           p.MP3Count,
			VideoCount:         p.VideoCount,
		})
	}
	return ProductGrid{Products: cards, Total: len(cards), UpdatedAt: r.state.UpdatedAt("products")}
}

type ScriptCard struct {
	ID               int64             `json:"id"`
	ProductID        int64             `json:"product_id"`
	ProductName      string            `json:"product_name,omitempty"`
	ProductSKU       string            `json:"product_sku,omitempty"`
	Title            string            `json:"title"`
	Preview          string            `json:"preview"`
	Segments         []emotion.Segment `json:"segments"`
	Emotions         []string          `json:"emotions"`
	TargetEmotion    string            `json:"target_emotion,omitempty"`
	EmotionStyle     *emotion.Style    `json:"emotion_style,omitempty"`
	ScriptType       string            `json:"script_type,omitempty"`
	WordCount        int               `json:"word_count"`
	DurationEstimate int               `json:"duration_estimate"`
	State            lifecycle.State   `json:"state"`
	HasMP3           bool              `json:"has_mp3"`
	CanEdit          bool              `json:"can_edit"`
	MP3Count         int               `json:"mp3_count"`
	Selected         bool              `json:"selected"`
	CreatedAt        string            `json:"created_at,omitempty"`
}

type ScriptList struct {
	ProductID   int64        `json:"product_id"`
	AllProducts bool         `json:"all_products"`
	Scripts     []ScriptCard `json:"scripts"`
	Total       int          `json:"total"`
	WithMP3     int          `json:"with_mp3"`
	Generating  int          `json:"generating"`
	Selected    int          `json:"selected"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (r *Renderer) ScriptList() ScriptList {
	scripts := r.state.Scripts()
	filter := r.state.ScriptsFilter()

	list := ScriptList{
		ProductID:   filter,
		AllProducts: filter == state.AllProducts,
		Scripts:     make([]ScriptCard, 0, len(scripts)),
		UpdatedAt:   r.state.UpdatedAt("scripts"),
	}
	for _, s := range scripts {
		card := r.ScriptCard(s)
		switch card.State {
		case lifecycle.StateLocked:
			list.WithMP3++
		case lifecycle.StateGenerating:
			list.Generating++
		}
		if card.Selected {
			list.Selected++
		}
		list.Scripts = append(list.Scripts, card)
	}
	list.Total = len(list.Scripts)
	return list
}

func (r *Renderer) ScriptCard(s backend.Script) ScriptCard {
	card := ScriptCard{
		ID:               s.ID,
		ProductID:        s.ProductID,
		ProductName:      s.ProductName,
		ProductSKU:       s.ProductSKU,
		Title:            s.Title,
		Preview:          preview(r.vocab.Strip(s.Content)),
		Emotions:         nonEmpty(r.vocab.UsedEmotions(s.Content)),
		TargetEmotion:    s.TargetEmotion,
		ScriptType:       s.ScriptType,
		WordCount:        s.WordCount,
		DurationEstimate: s.DurationEstimate,
		State:            r.stateOf(s),
		HasMP3:           s.HasMP3,
		CanEdit:          !s.Locked(),
		MP3Count:         s.MP3Count,
		CreatedAt:        s.CreatedAt,
	}
	if segments, err := r.vocab.Parse(s.Content); err == nil && segments != nil {
		card.Segments = segments
	} else if err == nil {
		card.Segments = []emotion.Segment{}
	} else {
		card.Segments = []emotion.Segment{{Text: s.Content}}
	}
	if card.WordCount == 0 {
		card.WordCount = r.vocab.WordCount(s.Content)
	}
	if card.DurationEstimate == 0 {
		card.DurationEstimate = r.vocab.EstimateDuration(s.Content)
	}
	if style, ok := r.vocab.Style(s.TargetEmotion); ok {
		card.EmotionStyle = &style
	}
	if r.lifecycle != nil {
		card.Selected = r.lifecycle.Selection().Contains(s.ID)
	}
	return card
}

func (r *Renderer) stateOf(s backend.Script) lifecycle.State {
	if r.lifecycle != nil {
		return r.lifecycle.StateOf(s)
	}
	switch {
	case s.Locked():
		return lifecycle.StateLocked
	case r.state.IsGenerating(s.ID):
		return lifecycle.StateGenerating
	}
	return lifecycle.StateDraft
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return strings.TrimSpace(string(runes[:previewLength])) + "..."
}

type ScriptPersonaOption struct {
	ID                int64    `json:"id"`
	Name              string   `json:"name"`
	Description       string   `json:"description,omitempty"`
	SpeakingStyle     string   `json:"speaking_style,omitempty"`
	DefaultEmotion    string   `json:"default_emotion,omitempty"`
	AvailableEmotions []string `json:"available_emotions"`
}

type VoicePersonaOption struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	TTSProvider    string   `json:"tts_provider"`
	Language       string   `json:"language,omitempty"`
	Gender         string   `json:"gender,omitempty"`
	Premium        bool     `json:"premium"`
	EmotionalRange []string `json:"emotional_range"`
	// Matches lists the script emotions this voice can express.
	Matches     []string `json:"matches"`
	Highlighted bool     `json:"highlighted"`
}

type PersonaPicker struct {
	ScriptPersonas []ScriptPersonaOption `json:"script_personas"`
	VoicePersonas  []VoicePersonaOption  `json:"voice_personas"`
}

// PersonaPicker renders both persona lists. When scriptID names a cached
// script, voices whose emotional range covers an emotion used by that script
// (its markup tags or target emotion) are highlighted.
func (r *Renderer) PersonaPicker(scriptID int64) PersonaPicker {
	var wanted []string
	if s, ok := r.state.Script(scriptID); ok {
		wanted = r.vocab.UsedEmotions(s.Content)
		if s.TargetEmotion != "" && !slices.Contains(wanted, s.TargetEmotion) {
			wanted = append(wanted, s.TargetEmotion)
		}
	}

	picker := PersonaPicker{
		ScriptPersonas: []ScriptPersonaOption{},
		VoicePersonas:  []VoicePersonaOption{},
	}
	for _, p := range r.state.ScriptPersonas() {
		picker.ScriptPersonas = append(picker.ScriptPersonas, ScriptPersonaOption{
			ID:                p.ID,
			Name:              p.Name,
			Description:       p.Description,
			SpeakingStyle:     p.SpeakingStyle,
			DefaultEmotion:    p.DefaultEmotion,
			AvailableEmotions: nonEmpty(p.AvailableEmotions),
		})
	}
	for _, v := range r.state.VoicePersonas() {
		opt := VoicePersonaOption{
			ID:             v.ID,
			Name:           v.Name,
			Description:    v.Description,
			TTSProvider:    v.TTSProvider,
			Language:       v.Language,
			Gender:         v.Gender,
			Premium:        v.IsPremium,
			EmotionalRange: nonEmpty(v.EmotionalRange),
			Matches:        []string{},
		}
		for _, e := range wanted {
			if v.Supports(e) {
				opt.Matches = append(opt.Matches, e)
			}
		}
		opt.Highlighted = len(opt.Matches) > 0
		picker.VoicePersonas = append(picker.VoicePersonas, opt)
	}
	return picker
}

type StatsView struct {
	Available      bool      `json:"available"`
	TotalProducts  int       `json:"total_products"`
	ActiveProducts int       `json:"active_products"`
	ReadyForLive   int       `json:"ready_for_live"`
	Scripts        int       `json:"scripts"`
	ScriptsWithMP3 int       `json:"scripts_with_mp3"`
	MP3Files       int       `json:"mp3_files"`
	Videos         int       `json:"videos"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (r *Renderer) Stats() StatsView {
	st := r.state.Stats()
	if st == nil {
		return StatsView{}
	}
	return StatsView{
		Available:      true,
		TotalProducts:  st.Products.Total,
		ActiveProducts: st.Products.Active,
		ReadyForLive:   st.Products.ReadyForLive,
		Scripts:        st.Content.Scripts,
		ScriptsWithMP3: st.Content.ScriptsWithMP3,
		MP3Files:       st.Content.MP3Files,
		Videos:         st.Content.Videos,
		UpdatedAt:      r.state.UpdatedAt("stats"),
	}
}

func nonEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
