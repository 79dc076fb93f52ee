package audio

import (
	"github.com/rs/zerolog/log"
)

// NarrationEvent describes one spoken prompt delivered to the browser.
// URL points at the cached mp3 under the static audio path; Rate is the
// playback rate the client should apply.
type NarrationEvent struct {
	Text string  `json:"text"`
	URL  string  `json:"url,omitempty"`
	Rate float64 `json:"rate"`
}

// PromptNarrator synthesizes prompt audio and hands the result to a
// publish callback. Synthesis failures degrade to a text-only event so
// the client can fall back to on-device speech.
type PromptNarrator struct {
	tts       *TTSService
	urlPrefix string
	publish   func(NarrationEvent)
}

// NewPromptNarrator creates a narrator backed by the given TTS service.
// urlPrefix is the public path the audio directory is served under.
func NewPromptNarrator(tts *TTSService, urlPrefix string, publish func(NarrationEvent)) *PromptNarrator {
	return &PromptNarrator{
		tts:       tts,
		urlPrefix: urlPrefix,
		publish:   publish,
	}
}

// Speak synthesizes text and publishes a narration event.
func (n *PromptNarrator) Speak(text string, rate float64) {
	ev := NarrationEvent{Text: text, Rate: rate}

	filename, err := n.tts.GeneratePromptAudio(text)
	if err != nil {
		log.Warn().Err(err).Msg("Prompt narration synthesis failed, sending text only")
	} else {
		ev.URL = n.urlPrefix + "/" + filename
	}

	n.publish(ev)
}
