package gameserver

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// EventLawState is the bridge event kind carrying a LawStatePayload.
const EventLawState = "law_state"

// LawStatePayload is the state pushed to a player after every change and on
// the periodic sync.
type LawStatePayload struct {
	Player      uuid.UUID
	WantedLevel int
	PeaceValue  int
	Immune      bool
}

// Struct encodes p as a protobuf Struct.
func (p LawStatePayload) Struct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"player":       structpb.NewStringValue(p.Player.String()),
		"wanted_level": structpb.NewNumberValue(float64(p.WantedLevel)),
		"peace_value":  structpb.NewNumberValue(float64(p.PeaceValue)),
		"immune":       structpb.NewBoolValue(p.Immune),
	}}
}

// DecodeLawStatePayload is the inverse of LawStatePayload.Struct.
func DecodeLawStatePayload(s *structpb.Struct) (LawStatePayload, error) {
	f := s.GetFields()
	id, err := uuid.Parse(f["player"].GetStringValue())
	if err != nil {
		return LawStatePayload{}, fmt.Errorf("decoding law state player: %w", err)
	}
	return LawStatePayload{
		Player:      id,
		WantedLevel: int(f["wanted_level"].GetNumberValue()),
		PeaceValue:  int(f["peace_value"].GetNumberValue()),
		Immune:      f["immune"].GetBoolValue(),
	}, nil
}

// StateSender delivers law state to one player. Delivery is fire-and-forget.
type StateSender interface {
	SendLawState(p LawStatePayload) error
}

// SessionSender pushes binary-encoded payloads onto the player's session entity.
type SessionSender struct {
	players PlayerDirectory
}

// NewSessionSender creates a sender over players.
func NewSessionSender(players PlayerDirectory) *SessionSender {
	return &SessionSender{players: players}
}

// SendLawState implements StateSender.
func (s *SessionSender) SendLawState(p LawStatePayload) error {
	sess, ok := s.players.GetPlayer(p.Player)
	if !ok || sess.Entity == nil {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, p.Player)
	}
	data, err := proto.Marshal(p.Struct())
	if err != nil {
		return fmt.Errorf("marshaling law state: %w", err)
	}
	return sess.Entity.Push(EventLawState, data)
}

// MultiSender fans a payload out to several senders.
type MultiSender []StateSender

// SendLawState implements StateSender; it tries every sender and joins the errors.
func (m MultiSender) SendLawState(p LawStatePayload) error {
	var errs []error
	for _, s := range m {
		if err := s.SendLawState(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
