package classifier

import (
	"fmt"
	"strings"
)

const (
	BackendHugot  = "hugot"
	BackendRemote = "remote"
	BackendOpenAI = "openai"
)

type Settings struct {
	Backend string
	Hugot   HugotOptions
	Remote  RemoteOptions
	OpenAI  OpenAIOptions
}

// New builds the scorer selected by settings.Backend. Load failures are
// reported as ErrModelUnavailable.
func New(settings Settings) (Scorer, error) {
	switch strings.ToLower(settings.Backend) {
	case BackendHugot, "":
		return NewHugotScorer(settings.Hugot)
	case BackendRemote:
		return NewRemoteScorer(settings.Remote)
	case BackendOpenAI:
		return NewOpenAIScorer(settings.OpenAI)
	default:
		return nil, fmt.Errorf("[Classifier] unknown backend %q", settings.Backend)
	}
}
