package models

import "time"

// Participant is a member of a class request. StudentID is the uniqueness
// key within one request.
type Participant struct {
	StudentID string `json:"student_id"`
	FullName  string `json:"full_name"`
	Class     string `json:"class"`
}

// ClassRequest represents a collaborative session tied to a room. The
// creator is always seeded as the first participant and ParticipantCount
// mirrors len(Participants) at all times. Details holds caller-supplied
// descriptive fields that the server stores but does not interpret.
type ClassRequest struct {
	ID               string         `json:"id"`
	Room             string         `json:"room"`
	CreatorName      string         `json:"creator_name"`
	CreatorStudentID string         `json:"creator_student_id"`
	CreatorClass     string         `json:"creator_class"`
	Participants     []Participant  `json:"participants"`
	ParticipantCount int            `json:"participant_count"`
	CreatedAt        time.Time      `json:"created_at"`
	Details          map[string]any `json:"details,omitempty"`
}

// HasParticipant reports whether a student already joined the request.
func (r ClassRequest) HasParticipant(studentID string) bool {
	for _, p := range r.Participants {
		if p.StudentID == studentID {
			return true
		}
	}
	return false
}
