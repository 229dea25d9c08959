package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"classroom-chat-service/internal/models"
	"classroom-chat-service/internal/observability"
	"classroom-chat-service/internal/store"
)

// CreateRequestInput is the payload for creating a class request. The
// creator identity fields are required; Details carries caller-defined
// descriptive fields stored verbatim.
type CreateRequestInput struct {
	Room             string
	CreatorName      string
	CreatorStudentID string
	CreatorClass     string
	Details          map[string]any
}

// RequestService owns the class-request lifecycle. Every mutation is one
// atomic read-modify-write on the request's record, so authorization and
// uniqueness checks cannot race with concurrent mutations of the same
// request.
type RequestService struct {
	store       store.Store
	broadcaster Broadcaster
}

// NewRequestService constructs a RequestService.
func NewRequestService(st store.Store, broadcaster Broadcaster) *RequestService {
	return &RequestService{store: st, broadcaster: broadcaster}
}

const requestKeyPrefix = "request:"

func requestKey(id string) string {
	return requestKeyPrefix + id
}

// Create stores a new class request with a server-assigned id, the
// creator seeded as first participant, and broadcasts the created record
// to the owning room.
func (s *RequestService) Create(ctx context.Context, input CreateRequestInput) (models.ClassRequest, error) {
	record := models.ClassRequest{
		ID:               uuid.NewString(),
		Room:             input.Room,
		CreatorName:      input.CreatorName,
		CreatorStudentID: input.CreatorStudentID,
		CreatorClass:     input.CreatorClass,
		Participants: []models.Participant{{
			StudentID: input.CreatorStudentID,
			FullName:  input.CreatorName,
			Class:     input.CreatorClass,
		}},
		ParticipantCount: 1,
		CreatedAt:        time.Now().UTC(),
		Details:          input.Details,
	}

	err := s.store.AtomicUpdate(ctx, requestKey(record.ID), func(cur []byte) ([]byte, error) {
		if cur != nil {
			return nil, fmt.Errorf("class request id collision: %s", record.ID)
		}
		return json.Marshal(record)
	})
	if err != nil {
		return models.ClassRequest{}, err
	}

	observability.IncClassRequestEvent("created")
	s.broadcaster.Broadcast(record.Room, models.Event{
		Type:    models.EventClassRequestCreated,
		Request: &record,
	})
	return record, nil
}

// Join appends a participant to the request. The duplicate-studentId
// check runs inside the atomic update so two concurrent joins cannot
// both pass a stale check.
func (s *RequestService) Join(ctx context.Context, id string, participant models.Participant) (models.ClassRequest, error) {
	var record models.ClassRequest
	err := s.store.AtomicUpdate(ctx, requestKey(id), func(cur []byte) ([]byte, error) {
		if cur == nil {
			return nil, ErrNotFound
		}
		if err := json.Unmarshal(cur, &record); err != nil {
			return nil, fmt.Errorf("decode class request %q: %w", id, err)
		}
		if record.HasParticipant(participant.StudentID) {
			return nil, ErrAlreadyJoined
		}
		record.Participants = append(record.Participants, participant)
		record.ParticipantCount = len(record.Participants)
		return json.Marshal(record)
	})
	if err != nil {
		return models.ClassRequest{}, err
	}

	observability.IncClassRequestEvent("joined")
	s.broadcaster.Broadcast(record.Room, models.Event{
		Type:    models.EventClassRequestUpdated,
		Request: &record,
	})
	return record, nil
}

// Delete removes the request. Only the creator may delete; the check
// happens inside the same atomic step as the removal so the record
// cannot change between check and delete.
func (s *RequestService) Delete(ctx context.Context, id, requesterName string) error {
	var room string
	err := s.store.AtomicUpdate(ctx, requestKey(id), func(cur []byte) ([]byte, error) {
		if cur == nil {
			return nil, ErrNotFound
		}
		var record models.ClassRequest
		if err := json.Unmarshal(cur, &record); err != nil {
			return nil, fmt.Errorf("decode class request %q: %w", id, err)
		}
		if record.CreatorName != requesterName {
			return nil, ErrNotAuthorized
		}
		room = record.Room
		return nil, nil
	})
	if err != nil {
		return err
	}

	observability.IncClassRequestEvent("deleted")
	s.broadcaster.Broadcast(room, models.Event{
		Type:      models.EventClassRequestDeleted,
		RequestID: id,
	})
	return nil
}

// ListByRoom returns the active requests belonging to room, in
// unspecified order.
func (s *RequestService) ListByRoom(ctx context.Context, room string) ([]models.ClassRequest, error) {
	records, err := s.store.Scan(ctx, requestKeyPrefix)
	if err != nil {
		return nil, err
	}
	out := []models.ClassRequest{}
	for key, val := range records {
		var record models.ClassRequest
		if err := json.Unmarshal(val, &record); err != nil {
			id := strings.TrimPrefix(key, requestKeyPrefix)
			return nil, fmt.Errorf("decode class request %q: %w", id, err)
		}
		if record.Room == room {
			out = append(out, record)
		}
	}
	return out, nil
}

// Participants returns the participant list of a request.
func (s *RequestService) Participants(ctx context.Context, id string) ([]models.Participant, error) {
	val, err := s.store.ReadRecord(ctx, requestKey(id))
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, ErrNotFound
	}
	var record models.ClassRequest
	if err := json.Unmarshal(val, &record); err != nil {
		return nil, fmt.Errorf("decode class request %q: %w", id, err)
	}
	return record.Participants, nil
}
