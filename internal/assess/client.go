package assess

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"littletoes/internal/models"
)

// examinerPrompt frames the scoring request for the language model. The
// Vietnamese-names instruction prevents proper nouns being marked as
// pronunciation errors.
const examinerPrompt = `You are a friendly, encouraging English examiner for young children (GrapeSEED style).

The child was asked: %q

Context: The student is a Vietnamese child learning English.

Please listen to the audio and evaluate:
1. Pronunciation & Intonation (Is it clear? Is the stress natural?)
2. Grammar (Are basic structures correct?)
3. Relevance (Did they answer the question asked?)

IMPORTANT INSTRUCTION FOR VIETNAMESE NAMES:
- The students will likely use Vietnamese names (e.g., Lan, Minh, Tuan, Huong, Vy, Dung, Bao, etc.) especially when answering "What is your mom's/dad's name?".
- Please recognize these as valid proper nouns.
- Do NOT mark them as incorrect English words or pronunciation errors.
- Example: "My mom's name is Lan" is a perfect sentence. "My dad's name is Dung" is correct.

If the audio is silent or unintelligible, give low scores and ask them to try again nicely.
Output JSON.`

// Client submits one (clip, prompt) pair to the Gemini generateContent
// endpoint and returns a validated Assessment. The client performs no
// retries; retry policy belongs to the caller.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates a scoring client. timeout bounds the whole exchange;
// expiry surfaces as a TransportError.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Request/response wire types for the generateContent exchange.

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMIMEType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
	Temperature      float64         `json:"temperature,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// assessmentSchema constrains the model to the six required fields
var assessmentSchema = json.RawMessage(`{
	"type": "OBJECT",
	"properties": {
		"pronunciationScore": {"type": "INTEGER", "description": "Score from 1 to 5 based on clarity and intonation."},
		"grammarScore": {"type": "INTEGER", "description": "Score from 1 to 5 based on basic grammar rules suitable for children."},
		"relevanceScore": {"type": "INTEGER", "description": "Score from 1 to 5 based on if the answer addresses the question."},
		"transcription": {"type": "STRING", "description": "What the student actually said."},
		"feedback": {"type": "STRING", "description": "A short, friendly, encouraging sentence for a child (GrapeSEED style)."},
		"sticker": {"type": "STRING", "description": "A single emoji that represents the feeling of the result (e.g., Star, Thumbs up, Heart)."}
	},
	"required": ["pronunciationScore", "grammarScore", "relevanceScore", "transcription", "feedback", "sticker"]
}`)

// rawAssessment uses pointers so a missing field is distinguishable from a
// zero value. Scores keep integer typing so "3.5" fails to decode.
type rawAssessment struct {
	PronunciationScore *int    `json:"pronunciationScore"`
	GrammarScore       *int    `json:"grammarScore"`
	RelevanceScore     *int    `json:"relevanceScore"`
	Transcription      *string `json:"transcription"`
	Feedback           *string `json:"feedback"`
	Sticker            *string `json:"sticker"`
}

// Assess submits the clip and prompt text for scoring. Exactly one outcome:
// a validated Assessment or one of TransportError, ServiceError,
// MalformedResponse.
func (c *Client) Assess(ctx context.Context, clip models.AudioClip, promptText string) (*models.Assessment, error) {
	if clip.Empty() {
		return nil, errors.New("clip must not be empty")
	}
	if promptText == "" {
		return nil, errors.New("prompt text must not be empty")
	}
	if c.apiKey == "" {
		return nil, &ServiceError{Message: "API key missing"}
	}

	reqBody := generateRequest{
		Contents: []content{{
			Parts: []part{
				{InlineData: &inlineData{
					MIMEType: clip.MIMEType,
					Data:     base64.StdEncoding.EncodeToString(clip.Data),
				}},
				{Text: fmt.Sprintf(examinerPrompt, promptText)},
			},
		}},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   assessmentSchema,
			Temperature:      0.4,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scoring request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create scoring request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		msg := http.StatusText(resp.StatusCode)
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			msg = errResp.Error.Message
		}
		return nil, &ServiceError{StatusCode: resp.StatusCode, Message: msg}
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return nil, &MalformedResponse{Reason: "response is not valid JSON"}
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return nil, &MalformedResponse{Reason: "no text returned"}
	}

	return parseAssessment([]byte(genResp.Candidates[0].Content.Parts[0].Text))
}

// parseAssessment decodes and validates the model's JSON payload against
// the assessment contract.
func parseAssessment(data []byte) (*models.Assessment, error) {
	var raw rawAssessment
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &MalformedResponse{Reason: fmt.Sprintf("invalid assessment payload: %v", err)}
	}

	scores := []struct {
		name  string
		value *int
	}{
		{"pronunciationScore", raw.PronunciationScore},
		{"grammarScore", raw.GrammarScore},
		{"relevanceScore", raw.RelevanceScore},
	}
	for _, s := range scores {
		if s.value == nil {
			return nil, &MalformedResponse{Reason: fmt.Sprintf("missing field %s", s.name)}
		}
		if *s.value < 1 || *s.value > 5 {
			return nil, &MalformedResponse{Reason: fmt.Sprintf("%s out of range: %d", s.name, *s.value)}
		}
	}

	// Transcription may be empty (silence), but must be present
	if raw.Transcription == nil {
		return nil, &MalformedResponse{Reason: "missing field transcription"}
	}
	if raw.Feedback == nil || *raw.Feedback == "" {
		return nil, &MalformedResponse{Reason: "missing field feedback"}
	}
	if raw.Sticker == nil || *raw.Sticker == "" {
		return nil, &MalformedResponse{Reason: "missing field sticker"}
	}

	return &models.Assessment{
		PronunciationScore: *raw.PronunciationScore,
		GrammarScore:       *raw.GrammarScore,
		RelevanceScore:     *raw.RelevanceScore,
		Transcription:      *raw.Transcription,
		Feedback:           *raw.Feedback,
		Sticker:            *raw.Sticker,
	}, nil
}
