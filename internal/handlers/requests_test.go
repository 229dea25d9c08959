package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classroom-chat-service/internal/models"
	"classroom-chat-service/internal/services"
	"classroom-chat-service/internal/store"
	"classroom-chat-service/internal/ws"
)

func setupRequestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	requestService := services.NewRequestService(store.NewMemoryStore(), ws.NewHub())
	handler := NewRequestHandler(requestService, nil)

	r := gin.New()
	r.POST("/class-request", handler.Create)
	r.DELETE("/class-request/:id", handler.Delete)
	r.POST("/class-request/:id/join", handler.Join)
	r.GET("/class-request/:id/participants", handler.Participants)
	r.GET("/class-requests/:room", handler.ListByRoom)
	return r
}

func createRequest(t *testing.T, router *gin.Engine) models.ClassRequest {
	t.Helper()
	body := bytes.NewBufferString(`{"room":"A","creator_name":"bob","creator_student_id":"s1","creator_class":"10A"}`)
	req := httptest.NewRequest(http.MethodPost, "/class-request", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var record models.ClassRequest
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&record))
	return record
}

func TestCreateClassRequest(t *testing.T) {
	router := setupRequestRouter(t)

	record := createRequest(t, router)

	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "A", record.Room)
	assert.Equal(t, 1, record.ParticipantCount)
	require.Len(t, record.Participants, 1)
	assert.Equal(t, "s1", record.Participants[0].StudentID)
}

func TestCreateClassRequestMissingFields(t *testing.T) {
	router := setupRequestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/class-request", bytes.NewBufferString(`{"room":"A"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateClassRequestReservedDetailKey(t *testing.T) {
	router := setupRequestRouter(t)

	body := bytes.NewBufferString(`{"room":"A","creator_name":"bob","creator_student_id":"s1","creator_class":"10A","details":{"id":"fake"}}`)
	req := httptest.NewRequest(http.MethodPost, "/class-request", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJoinClassRequest(t *testing.T) {
	router := setupRequestRouter(t)
	record := createRequest(t, router)

	body := bytes.NewBufferString(`{"student_id":"s2","full_name":"carol","class":"10B"}`)
	req := httptest.NewRequest(http.MethodPost, "/class-request/"+record.ID+"/join", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.ClassRequest
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&updated))
	assert.Equal(t, 2, updated.ParticipantCount)
}

func TestJoinClassRequestDuplicate(t *testing.T) {
	router := setupRequestRouter(t)
	record := createRequest(t, router)

	body := bytes.NewBufferString(`{"student_id":"s1","full_name":"bob","class":"10A"}`)
	req := httptest.NewRequest(http.MethodPost, "/class-request/"+record.ID+"/join", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJoinClassRequestNotFound(t *testing.T) {
	router := setupRequestRouter(t)

	body := bytes.NewBufferString(`{"student_id":"s2","full_name":"carol","class":"10B"}`)
	req := httptest.NewRequest(http.MethodPost, "/class-request/missing/join", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteClassRequestByNonCreator(t *testing.T) {
	router := setupRequestRouter(t)
	record := createRequest(t, router)

	req := httptest.NewRequest(http.MethodDelete, "/class-request/"+record.ID+"?creator=carol", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	listReq := httptest.NewRequest(http.MethodGet, "/class-requests/A", nil)
	listRec := httptest.NewRecorder()
	router.ServeHTTP(listRec, listReq)
	require.Equal(t, http.StatusOK, listRec.Code)

	var records []models.ClassRequest
	require.NoError(t, json.NewDecoder(listRec.Body).Decode(&records))
	assert.Len(t, records, 1)
}

func TestDeleteClassRequestByCreator(t *testing.T) {
	router := setupRequestRouter(t)
	record := createRequest(t, router)

	req := httptest.NewRequest(http.MethodDelete, "/class-request/"+record.ID+"?creator=bob", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	participantsReq := httptest.NewRequest(http.MethodGet, "/class-request/"+record.ID+"/participants", nil)
	participantsRec := httptest.NewRecorder()
	router.ServeHTTP(participantsRec, participantsReq)
	require.Equal(t, http.StatusNotFound, participantsRec.Code)
}

func TestDeleteClassRequestNotFound(t *testing.T) {
	router := setupRequestRouter(t)

	req := httptest.NewRequest(http.MethodDelete, "/class-request/missing?creator=bob", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetParticipants(t *testing.T) {
	router := setupRequestRouter(t)
	record := createRequest(t, router)

	req := httptest.NewRequest(http.MethodGet, "/class-request/"+record.ID+"/participants", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var participants []models.Participant
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&participants))
	require.Len(t, participants, 1)
	assert.Equal(t, "s1", participants[0].StudentID)
}

func TestListClassRequestsEmptyRoom(t *testing.T) {
	router := setupRequestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/class-requests/empty", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
