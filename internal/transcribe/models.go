package transcribe

// RecognitionRequest represents request to start recognition
type RecognitionRequest struct {
	Config RecognitionConfig `json:"config"`
	Audio  AudioSource       `json:"audio"`
}

// RecognitionConfig holds recognition parameters
type RecognitionConfig struct {
	Specification Specification `json:"specification"`
}

// Specification defines audio and recognition parameters. Language is
// left unset so the hosted service auto-detects it; detection is the
// service's contract, not reproduced here.
type Specification struct {
	LanguageCode      string `json:"languageCode,omitempty"`
	Model             string `json:"model"`
	AudioEncoding     string `json:"audioEncoding"`
	SampleRateHertz   int    `json:"sampleRateHertz"`
	AudioChannelCount int    `json:"audioChannelCount"`
	ProfanityFilter   bool   `json:"profanityFilter"`
	RawResults        bool   `json:"rawResults"`
}

// AudioSource specifies location of audio file
type AudioSource struct {
	URI string `json:"uri"`
}

// OperationResponse represents the long-running operation envelope
type OperationResponse struct {
	ID          string                 `json:"id"`
	Description string                 `json:"description"`
	CreatedAt   string                 `json:"createdAt"`
	Done        bool                   `json:"done"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Response    interface{}            `json:"response,omitempty"`
	Error       *OperationError        `json:"error,omitempty"`
}

// OperationError represents error in operation
type OperationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RecognitionResult represents final recognition result
type RecognitionResult struct {
	DetectedLanguage string    `json:"detectedLanguageCode,omitempty"`
	Segments         []Segment `json:"segments"`
}

// Segment represents one span of recognized speech
type Segment struct {
	Alternatives []Alternative `json:"alternatives"`
	StartTimeMs  int64         `json:"startTimeMs,omitempty"`
	EndTimeMs    int64         `json:"endTimeMs,omitempty"`
}

// Alternative represents one recognition variant
type Alternative struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence,omitempty"`
}

// FullText joins the best alternative of every segment.
func (r *RecognitionResult) FullText() string {
	var text string
	for _, seg := range r.Segments {
		if len(seg.Alternatives) == 0 {
			continue
		}
		if text != "" {
			text += " "
		}
		text += seg.Alternatives[0].Text
	}
	return text
}
