package fxcore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	eventTypeHdr       = "Fx-Event-Type"
	eventTimeHdr       = "Fx-Event-Time"
	eventCodecHdr      = "Fx-Event-Codec"
	eventMetaPrefixHdr = "Fx-Event-Meta-"
	eventTimeFormat    = time.RFC3339Nano
)

type appendOpts struct {
	expSeq *uint64
}

type appendOptFn func(o *appendOpts) error

func (f appendOptFn) appendOpt(o *appendOpts) error {
	return f(o)
}

// AppendOption is an option for the event store Append operation.
type AppendOption interface {
	appendOpt(o *appendOpts) error
}

// ExpectSequence indicates that the current last sequence of the subject
// must be the value provided. If not, ErrSequenceConflict is reported and
// nothing is appended.
func ExpectSequence(seq uint64) AppendOption {
	return appendOptFn(func(o *appendOpts) error {
		o.expSeq = &seq
		return nil
	})
}

type loadOpts struct {
	afterSeq *uint64
}

type loadOptFn func(o *loadOpts) error

func (f loadOptFn) loadOpt(o *loadOpts) error {
	return f(o)
}

// LoadOption is an option for the event store Load operation.
type LoadOption interface {
	loadOpt(o *loadOpts) error
}

// AfterSequence specifies the sequence of the last known event, so that only
// later events are fetched. This is useful when partially applied state has
// been derived up to a specific sequence and only the latest events need to
// be fetched.
func AfterSequence(seq uint64) LoadOption {
	return loadOptFn(func(o *loadOpts) error {
		o.afterSeq = &seq
		return nil
	})
}

type natsApiError struct {
	Code        int    `json:"code"`
	ErrCode     uint16 `json:"err_code"`
	Description string `json:"description"`
}

type natsGetMsgRequest struct {
	LastBySubject string `json:"last_by_subj"`
}

type natsGetMsgResponse struct {
	Type    string         `json:"type"`
	Error   *natsApiError  `json:"error"`
	Message *natsStoredMsg `json:"message"`
}

type natsStoredMsg struct {
	Sequence uint64 `json:"seq"`
}

// EventStore provides an append-only, per-entity-stream event log on a NATS
// stream. One store backs one entity type; each entity identity maps to one
// subject within the stream.
type EventStore struct {
	name string
	core *Core
}

// Create adds the backing stream. Only the storage, replica, and placement
// fields of the config are honored; the name and subjects derive from the
// store name, and deletes and purges are denied so history is never removed.
func (s *EventStore) Create(config *nats.StreamConfig) error {
	var cfg nats.StreamConfig
	if config != nil {
		cfg = *config
	}

	cfg.Name = s.name
	if len(cfg.Subjects) == 0 {
		cfg.Subjects = []string{fmt.Sprintf("%s.>", s.name)}
	}
	cfg.DenyDelete = true
	cfg.DenyPurge = true

	_, err := s.core.js.AddStream(&cfg)
	return err
}

// Delete removes the backing stream. Intended for tests.
func (s *EventStore) Delete() error {
	return s.core.js.DeleteStream(s.name)
}

// Pack an event into a NATS message. The advantage of using NATS headers
// is that the server supports creating a consumer that _only_ gets the
// headers without the data as an optimization for some use cases.
func (s *EventStore) packEvent(subject string, event *Event) (*nats.Msg, error) {
	if event.ID == "" {
		if s.core.id == nil {
			return nil, ErrEventIDRequired
		}
		event.ID = s.core.id.New()
	}

	if event.Time.IsZero() {
		event.Time = s.core.clock.Now()
	}

	var (
		data      []byte
		codecName string
	)

	switch d := event.Data.(type) {
	case []byte:
		// Pre-encoded payload, requires an explicit type name.
		data = d
		codecName = "binary"
	default:
		if s.core.types == nil {
			return nil, fmt.Errorf("fxcore: no type registry for %T", event.Data)
		}
		name, err := s.core.types.Lookup(event.Data)
		if err != nil {
			return nil, err
		}
		if event.Type == "" {
			event.Type = name
		}
		data, err = s.core.types.Marshal(event.Data)
		if err != nil {
			return nil, err
		}
		codecName = s.core.types.CodecName()
	}

	if event.Type == "" {
		return nil, ErrEventTypeRequired
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, event.ID)
	msg.Header.Set(eventTypeHdr, event.Type)
	msg.Header.Set(eventTimeHdr, event.Time.Format(eventTimeFormat))
	msg.Header.Set(eventCodecHdr, codecName)

	for k, v := range event.Meta {
		msg.Header.Set(eventMetaPrefixHdr+k, v)
	}

	return msg, nil
}

// lastMsgForSubject queries the JS API to identify the current latest
// sequence for a subject. This is used as a best-guess indicator of the
// current end of the event history.
func (s *EventStore) lastMsgForSubject(ctx context.Context, subject string) (*natsStoredMsg, error) {
	rsubject := fmt.Sprintf("$JS.API.STREAM.MSG.GET.%s", s.name)

	data, _ := json.Marshal(&natsGetMsgRequest{
		LastBySubject: subject,
	})

	msg, err := s.core.nc.RequestWithContext(ctx, rsubject, data)
	if err != nil {
		return nil, err
	}

	var rep natsGetMsgResponse
	err = json.Unmarshal(msg.Data, &rep)
	if err != nil {
		return nil, err
	}

	if rep.Error != nil {
		if rep.Error.Code == 404 {
			return &natsStoredMsg{}, nil
		}
		return nil, fmt.Errorf("%s (%d)", rep.Error.Description, rep.Error.Code)
	}

	return rep.Message, nil
}

// Load fetches all events for a specific subject in sequence order. This is
// expected to be a concrete subject (without wildcards) so that the returned
// sequence can be fed in as the expected sequence for a subsequent append.
func (s *EventStore) Load(ctx context.Context, subject string, opts ...LoadOption) ([]*Event, uint64, error) {
	var o loadOpts
	for _, opt := range opts {
		if err := opt.loadOpt(&o); err != nil {
			return nil, 0, err
		}
	}

	lastMsg, err := s.lastMsgForSubject(ctx, subject)
	if err != nil {
		return nil, 0, err
	}

	if lastMsg.Sequence == 0 {
		return nil, 0, nil
	}

	// Ephemeral ordered consumer.. read as fast as possible with least
	// overhead.
	sopts := []nats.SubOpt{
		nats.OrderedConsumer(),
		nats.BindStream(s.name),
	}

	// Don't bother creating the consumer if the last seq is smaller than
	// start.
	if o.afterSeq != nil {
		if lastMsg.Sequence <= *o.afterSeq {
			return nil, *o.afterSeq, nil
		}
		sopts = append(sopts, nats.StartSequence(*o.afterSeq+1))
	} else {
		sopts = append(sopts, nats.DeliverAll())
	}

	sub, err := s.core.js.SubscribeSync(subject, sopts...)
	if err != nil {
		return nil, 0, err
	}
	defer sub.Unsubscribe()

	var events []*Event
	for {
		msg, err := sub.NextMsgWithContext(ctx)
		if err != nil {
			return nil, 0, err
		}

		event, err := s.core.UnpackEvent(msg)
		if err != nil {
			return nil, 0, err
		}
		event.Stream = s.name

		events = append(events, event)

		if event.Seq >= lastMsg.Sequence {
			break
		}
	}

	return events, lastMsg.Sequence, nil
}

// Evolve folds the events of a subject into the state, starting after the
// sequence given with AfterSequence, if any. It returns the sequence of the
// last event applied.
func (s *EventStore) Evolve(ctx context.Context, subject string, state State, opts ...LoadOption) (uint64, error) {
	events, lseq, err := s.Load(ctx, subject, opts...)
	if err != nil {
		return 0, err
	}

	for _, event := range events {
		if err := state.Evolve(event); err != nil {
			return 0, fmt.Errorf("fxcore: evolve %s @ %d: %w", subject, event.Seq, err)
		}
	}

	return lseq, nil
}

// Append appends an ordered batch of events to the subject. The batch is
// written one event at a time with a per-subject expected sequence carried
// forward, so a concurrent writer is detected on the first event and
// nothing after the conflict point is written. It returns the resulting
// sequence of the last appended event.
func (s *EventStore) Append(ctx context.Context, subject string, events []*Event, opts ...AppendOption) (uint64, error) {
	var o appendOpts
	for _, opt := range opts {
		if err := opt.appendOpt(&o); err != nil {
			return 0, err
		}
	}

	var last uint64
	exp := o.expSeq
	for _, event := range events {
		msg, err := s.packEvent(subject, event)
		if err != nil {
			return 0, err
		}

		popts := []nats.PubOpt{
			nats.Context(ctx),
			nats.ExpectStream(s.name),
		}

		if exp != nil {
			popts = append(popts, nats.ExpectLastSequencePerSubject(*exp))
		}

		ack, err := s.core.js.PublishMsg(msg, popts...)
		if err != nil {
			if strings.Contains(err.Error(), "wrong last sequence") {
				return 0, ErrSequenceConflict
			}
			return 0, err
		}

		event.Stream = s.name
		event.Subject = subject
		event.Seq = ack.Sequence
		last = ack.Sequence

		// The next event in the batch must land directly after this one
		// on the subject, regardless of what other subjects interleave in
		// the stream.
		if exp != nil {
			seq := ack.Sequence
			exp = &seq
		}
	}

	return last, nil
}
