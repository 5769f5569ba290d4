package backend

import "encoding/json"

type Product struct {
	ID                 int64    `json:"id"`
	SKU                string   `json:"sku"`
	Name               string   `json:"name"`
	Description        string   `json:"description,omitempty"`
	Price              float64  `json:"price"`
	OriginalPrice      *float64 `json:"original_price,omitempty"`
	DiscountPercentage int      `json:"discount_percentage,omitempty"`
	IsOnSale           bool     `json:"is_on_sale,omitempty"`
	Category           string   `json:"category,omitempty"`
	Brand              string   `json:"brand,omitempty"`
	Status             string   `json:"status,omitempty"`
	ScriptCount        int      `json:"script_count"`
	MP3Count           int      `json:"mp3_count"`
	VideoCount         int      `json:"video_count"`
}

// OnSale reports whether the product should be shown with sale pricing.
func (p Product) OnSale() bool {
	if p.IsOnSale || p.DiscountPercentage > 0 {
		return true
	}
	return p.OriginalPrice != nil && *p.OriginalPrice > p.Price
}

// ProductInput is the body of product create and update calls.
type ProductInput struct {
	SKU                string   `json:"sku" binding:"required,min=1,max=100"`
	Name               string   `json:"name" binding:"required,min=1,max=255"`
	Description        string   `json:"description,omitempty"`
	Price              float64  `json:"price" binding:"required,gt=0"`
	OriginalPrice      *float64 `json:"original_price,omitempty" binding:"omitempty,gt=0"`
	DiscountPercentage int      `json:"discount_percentage,omitempty" binding:"min=0,max=100"`
	Category           string   `json:"category,omitempty"`
	Brand              string   `json:"brand,omitempty"`
	StockQuantity      int      `json:"stock_quantity,omitempty" binding:"min=0"`
}

// ProductFilter narrows ListProducts.
type ProductFilter struct {
	Category string
	Status   string
}

type Script struct {
	ID               int64     `json:"id"`
	ProductID        int64     `json:"product_id"`
	Title            string    `json:"title"`
	Content          string    `json:"content"`
	ScriptType       string    `json:"script_type,omitempty"`
	TargetEmotion    string    `json:"target_emotion,omitempty"`
	CallToAction     string    `json:"call_to_action,omitempty"`
	WordCount        int       `json:"word_count,omitempty"`
	DurationEstimate int       `json:"duration_estimate,omitempty"`
	HasMP3           bool      `json:"has_mp3"`
	CanEdit          *bool     `json:"can_edit,omitempty"`
	MP3Count         int       `json:"mp3_count,omitempty"`
	CreatedAt        string    `json:"created_at,omitempty"`

	// Set by the console when scripts are loaded across all products.
	ProductName string `json:"product_name,omitempty"`
	ProductSKU  string `json:"product_sku,omitempty"`
}

// Locked reports whether the script has an MP3 and must not be edited.
func (s Script) Locked() bool {
	return s.HasMP3 || (s.CanEdit != nil && !*s.CanEdit)
}

// SetMP3 sets has_mp3 and keeps can_edit as its negation.
func (s *Script) SetMP3(has bool) {
	editable := !has
	s.HasMP3 = has
	s.CanEdit = &editable
}

// ScriptUpdate is the body of PUT /scripts/{id}.
type ScriptUpdate struct {
	Title         *string `json:"title,omitempty" binding:"omitempty,min=1,max=255"`
	Content       *string `json:"content,omitempty" binding:"omitempty,min=10"`
	TargetEmotion *string `json:"target_emotion,omitempty"`
	CallToAction  *string `json:"call_to_action,omitempty"`
}

// GenerateScriptsRequest asks the backend AI to write sales scripts.
type GenerateScriptsRequest struct {
	ProductID          int64  `json:"product_id" binding:"required,gt=0"`
	PersonaID          int64  `json:"persona_id" binding:"required,gt=0"`
	Mood               string `json:"mood" binding:"omitempty,max=50"`
	Count              int    `json:"count" binding:"required,min=1,max=10"`
	CustomInstructions string `json:"custom_instructions,omitempty"`
}

// ManualScriptRequest creates a script written by the operator.
type ManualScriptRequest struct {
	ProductID     int64  `json:"product_id" binding:"required,gt=0"`
	Title         string `json:"title" binding:"required,min=1,max=255"`
	Content       string `json:"content" binding:"required,min=10"`
	TargetEmotion string `json:"target_emotion,omitempty"`
	CallToAction  string `json:"call_to_action,omitempty"`
}

// DeleteMP3Result is the answer to DELETE /scripts/{id}/mp3.
type DeleteMP3Result struct {
	Success        bool   `json:"success"`
	Message        string `json:"message,omitempty"`
	ScriptUnlocked *bool  `json:"script_unlocked,omitempty"`
}

type ScriptPersona struct {
	ID                int64    `json:"id"`
	Name              string   `json:"name"`
	Description       string   `json:"description,omitempty"`
	SpeakingStyle     string   `json:"speaking_style,omitempty"`
	TargetAudience    string   `json:"target_audience,omitempty"`
	DefaultEmotion    string   `json:"default_emotion,omitempty"`
	AvailableEmotions []string `json:"available_emotions,omitempty"`
	UsageCount        int      `json:"usage_count,omitempty"`
}

type VoicePersona struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	TTSProvider    string   `json:"tts_provider"`
	VoiceID        string   `json:"voice_id,omitempty"`
	Language       string   `json:"language,omitempty"`
	Gender         string   `json:"gender,omitempty"`
	IsPremium      bool     `json:"is_premium"`
	EmotionalRange []string `json:"emotional_range,omitempty"`
	MP3sGenerated  int      `json:"mp3s_generated,omitempty"`
}

// Supports reports whether the voice lists emotion in its emotional range.
func (v VoicePersona) Supports(emotion string) bool {
	for _, e := range v.EmotionalRange {
		if e == emotion {
			return true
		}
	}
	return false
}

type TTSProvider struct {
	Available        bool              `json:"available"`
	Voices           map[string]string `json:"voices,omitempty"`
	SupportsEmotions bool              `json:"supports_emotions,omitempty"`
	Quality          string            `json:"quality,omitempty"`
	Cost             string            `json:"cost,omitempty"`
}

// MP3Request submits one or more scripts for TTS synthesis.
type MP3Request struct {
	ScriptIDs      []int64  `json:"script_ids" binding:"required,min=1,dive,gt=0"`
	VoicePersonaID int64    `json:"voice_persona_id" binding:"required,gt=0"`
	Quality        string   `json:"quality" binding:"required,oneof=low medium high enhanced"`
	TTSProvider    string   `json:"tts_provider,omitempty" binding:"omitempty,oneof=edge google elevenlabs basic"`
	Emotion        string   `json:"emotion,omitempty"`
	Intensity      *float64 `json:"intensity,omitempty" binding:"omitempty,min=0.5,max=2"`
}

// MP3Ack is the job-accepted answer to POST /mp3/generate.
type MP3Ack struct {
	Message             string `json:"message"`
	Status              string `json:"status"`
	Quality             string `json:"quality,omitempty"`
	EstimatedCompletion string `json:"estimated_completion,omitempty"`
}

type MP3File struct {
	ID           int64   `json:"id"`
	Filename     string  `json:"filename"`
	Status       string  `json:"status"`
	Provider     string  `json:"provider,omitempty"`
	FileSize     int64   `json:"file_size,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

type MP3Status struct {
	ScriptID    int64     `json:"script_id"`
	ScriptTitle string    `json:"script_title"`
	HasMP3      bool      `json:"has_mp3"`
	Files       []MP3File `json:"mp3_files"`
}

// TTSTestRequest synthesises a short sample without touching any script.
type TTSTestRequest struct {
	Text     string `json:"text" binding:"required,min=1,max=500"`
	Provider string `json:"provider" binding:"required"`
	Emotion  string `json:"emotion" binding:"required"`
	VoiceID  string `json:"voice_id,omitempty"`
}

type TTSTestResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	AudioURL string `json:"audio_url,omitempty"`
	Provider string `json:"provider"`
	Emotion  string `json:"emotion"`
}

type Stats struct {
	Products struct {
		Total        int     `json:"total"`
		Active       int     `json:"active"`
		Inactive     int     `json:"inactive"`
		OutOfStock   int     `json:"out_of_stock"`
		ReadyForLive int     `json:"ready_for_live"`
		Completion   float64 `json:"completion_rate"`
	} `json:"products"`
	Content struct {
		Scripts        int `json:"scripts"`
		AIScripts      int `json:"ai_scripts"`
		ManualScripts  int `json:"manual_scripts"`
		ScriptsWithMP3 int `json:"scripts_with_mp3"`
		MP3Files       int `json:"mp3_files"`
		Videos         int `json:"videos"`
	} `json:"content"`
	LastUpdated string `json:"last_updated,omitempty"`
}

type Video struct {
	Filename string          `json:"filename"`
	Path     string          `json:"path"`
	SizeMB   float64         `json:"size_mb"`
	Created  string          `json:"created"`
	Duration json.RawMessage `json:"duration,omitempty"`
}

// ProductInfo describes the product a video is generated for.
type ProductInfo struct {
	ID          int64   `json:"id,omitempty"`
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price,omitempty"`
	Category    string  `json:"category,omitempty"`
}

// VideoRequest is the body of POST /video-generation/generate.
type VideoRequest struct {
	ProductInfo  ProductInfo `json:"product_info"`
	Style        string      `json:"style" binding:"required,oneof=slideshow animated_text product_showcase"`
	CustomScript string      `json:"custom_script,omitempty"`
	IncludeAudio bool        `json:"include_audio"`
}

type VideoResult struct {
	Success   bool    `json:"success"`
	VideoID   string  `json:"video_id,omitempty"`
	VideoPath string  `json:"video_path,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
	Error     string  `json:"error,omitempty"`
}

type DisplayStatus struct {
	ServerRunning     bool   `json:"server_running"`
	Port              int    `json:"port"`
	ServerURL         string `json:"server_url,omitempty"`
	ActiveConnections int    `json:"active_connections"`
}
