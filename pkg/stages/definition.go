package stages

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/schema"
	"github.com/cespare/xxhash/v2"
)

const (
	// DefaultPollInterval is the fixed delay between two Result Store queries.
	DefaultPollInterval = 5 * time.Second
	// DefaultMaxWait bounds an async stage, measured from its submission.
	DefaultMaxWait = 5 * time.Minute
)

// PayloadBuilder derives the request body of a stage from upstream state.
// It must be a pure function of what Upstream exposes.
type PayloadBuilder func(up Upstream) (any, error)

// Definition describes one stage. It is immutable once placed in a Table.
type Definition struct {
	Name         string // Also the step_name of the Result Store row.
	Title        string
	Mode         domain.DispatchMode
	Endpoint     string
	Schema       schema.ResultSchema
	BuildPayload PayloadBuilder
	PollInterval time.Duration // Async only.
	MaxWait      time.Duration // Async only.
}

func (d Definition) validate() error {
	if d.Name == "" {
		return errors.New("name required")
	}
	if !d.Mode.Valid() {
		return fmt.Errorf("unknown mode %q", d.Mode)
	}
	if _, err := schema.For(d.Schema.Kind); err != nil {
		return err
	}
	if d.BuildPayload == nil {
		return errors.New("payload builder required")
	}
	if d.Mode == domain.ModeAsync && d.MaxWait < d.PollInterval {
		return fmt.Errorf("max wait %s shorter than poll interval %s", d.MaxWait, d.PollInterval)
	}
	return nil
}

func (d Definition) withDefaults() Definition {
	if d.Title == "" {
		d.Title = d.Name
	}
	if d.PollInterval <= 0 {
		d.PollInterval = DefaultPollInterval
	}
	if d.MaxWait <= 0 {
		d.MaxWait = DefaultMaxWait
	}
	return d
}

// Payload is a built, encoded stage request.
type Payload struct {
	Body        []byte
	Fingerprint uint64
}

// Payload builds and encodes the request for stage (1-based) of pc.
// Any failure is a *domain.PayloadError.
func (d Definition) Payload(pc *domain.PipelineContext, stage int) (*Payload, error) {
	v, err := d.BuildPayload(NewUpstream(pc, stage))
	if err != nil {
		return nil, &domain.PayloadError{Stage: d.Name, Err: err}
	}
	body, err := json.Marshal(v)
	if err != nil {
		return nil, &domain.PayloadError{Stage: d.Name, Err: err}
	}
	return &Payload{Body: body, Fingerprint: xxhash.Sum64(body)}, nil
}

// Seed returns the synthesizer seed for this payload.
func (p *Payload) Seed(stage string) schema.Seed {
	seed := schema.Seed{Stage: stage, Payload: map[string]any{}}
	if p != nil {
		_ = json.Unmarshal(p.Body, &seed.Payload)
	}
	return seed
}
