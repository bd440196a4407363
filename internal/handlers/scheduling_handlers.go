// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/infrastructure/auth"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-scheduling-service/pkg/constants"
)

// SchedulingHandler handles the scheduling API request/reply messages.
type SchedulingHandler struct {
	meetingService     *service.MeetingService
	participantService *service.ParticipantService
	auth               auth.IJWTAuth
}

// NewSchedulingHandler creates a new scheduling handlers instance.
func NewSchedulingHandler(
	meetingService *service.MeetingService,
	participantService *service.ParticipantService,
	jwtAuth auth.IJWTAuth,
) *SchedulingHandler {
	return &SchedulingHandler{
		meetingService:     meetingService,
		participantService: participantService,
		auth:               jwtAuth,
	}
}

// HandlerReady checks if the handler's services are ready.
func (h *SchedulingHandler) HandlerReady() bool {
	return h.meetingService.ServiceReady() && h.participantService.ServiceReady() && h.auth != nil
}

// HandleMessage implements domain.MessageHandler. It dispatches on the
// message subject and replies with a JSON OperationResponse when the message
// expects one.
func (h *SchedulingHandler) HandleMessage(ctx context.Context, msg domain.Message) {
	subject := msg.Subject()
	ctx = logging.AppendCtx(ctx, slog.String("subject", subject))
	slog.DebugContext(ctx, "handling scheduling API message")

	handlers := map[string]func(ctx context.Context, msg domain.Message) *models.OperationResponse{
		models.MeetingCreateSubject:     h.handleMeetingCreate,
		models.MeetingUpdateSubject:     h.handleMeetingUpdate,
		models.MeetingCancelSubject:     h.handleMeetingCancel,
		models.MeetingDeleteSubject:     h.handleMeetingDelete,
		models.MeetingGetSubject:        h.handleMeetingGet,
		models.MeetingListSubject:       h.handleMeetingList,
		models.ParticipantAssignSubject: h.handleParticipantAssign,
		models.ParticipantRemoveSubject: h.handleParticipantRemove,
		models.ConflictCheckSubject:     h.handleConflictCheck,
	}

	handler, ok := handlers[subject]
	if !ok {
		slog.WarnContext(ctx, "unknown scheduling API subject")
		h.respond(ctx, msg, errorResponse(domain.NewValidationError("unknown subject "+subject)))
		return
	}

	ctx, err := h.authenticate(ctx, msg)
	if err != nil {
		slog.WarnContext(ctx, "rejecting unauthenticated scheduling API message", logging.ErrKey, err)
		h.respond(ctx, msg, &models.OperationResponse{
			Error:     "invalid or missing bearer token",
			ErrorType: domain.ErrorTypeForbidden.String(),
		})
		return
	}

	h.respond(ctx, msg, handler(ctx, msg))
}

// authenticate parses the bearer token from the message's authorization
// header and stores the resulting principal on the context for the services
// to authorize against.
func (h *SchedulingHandler) authenticate(ctx context.Context, msg domain.Message) (context.Context, error) {
	token := strings.TrimSpace(strings.TrimPrefix(msg.Header(constants.AuthorizationHeader), "Bearer "))

	principal, err := h.auth.ParsePrincipal(ctx, token, slog.Default())
	if err != nil {
		return ctx, err
	}

	ctx = context.WithValue(ctx, constants.PrincipalContextID, principal)
	ctx = logging.AppendCtx(ctx, slog.String("principal", principal))
	return ctx, nil
}

func (h *SchedulingHandler) respond(ctx context.Context, msg domain.Message, response *models.OperationResponse) {
	if !msg.HasReply() {
		return
	}

	payload, err := json.Marshal(response)
	if err != nil {
		slog.ErrorContext(ctx, "error marshaling scheduling API response", logging.ErrKey, err)
		return
	}

	if err := msg.Respond(payload); err != nil {
		slog.ErrorContext(ctx, "error responding to scheduling API message", logging.ErrKey, err)
	}
}

// errorResponse maps a service error onto the reply envelope. Scheduling
// conflicts additionally carry the colliding meetings in the data field.
func errorResponse(err error) *models.OperationResponse {
	response := &models.OperationResponse{
		Error:     err.Error(),
		ErrorType: domain.GetErrorType(err).String(),
	}

	var conflictErr *domain.SchedulingConflictError
	if errors.As(err, &conflictErr) {
		response.Data = models.ConflictCheckResponse{Conflicts: conflictErr.Conflicts}
	}

	return response
}

func successResponse(data any) *models.OperationResponse {
	return &models.OperationResponse{Success: true, Data: data}
}

// decode unmarshals a request payload, mapping malformed JSON onto a
// validation error.
func decode[T any](ctx context.Context, msg domain.Message, req *T) error {
	if err := json.Unmarshal(msg.Data(), req); err != nil {
		slog.WarnContext(ctx, "error unmarshaling scheduling API request", logging.ErrKey, err)
		return domain.NewValidationError("invalid request payload", err)
	}
	return nil
}

func (h *SchedulingHandler) handleMeetingCreate(ctx context.Context, msg domain.Message) *models.OperationResponse {
	var req models.CreateMeetingRequest
	if err := decode(ctx, msg, &req); err != nil {
		return errorResponse(err)
	}

	resp, err := h.meetingService.CreateMeeting(ctx, &req)
	if err != nil {
		return errorResponse(err)
	}
	return successResponse(resp)
}

func (h *SchedulingHandler) handleMeetingUpdate(ctx context.Context, msg domain.Message) *models.OperationResponse {
	var req models.UpdateMeetingRequest
	if err := decode(ctx, msg, &req); err != nil {
		return errorResponse(err)
	}

	resp, err := h.meetingService.UpdateMeeting(ctx, &req)
	if err != nil {
		return errorResponse(err)
	}
	return successResponse(resp)
}

func (h *SchedulingHandler) handleMeetingCancel(ctx context.Context, msg domain.Message) *models.OperationResponse {
	var req models.CancelMeetingRequest
	if err := decode(ctx, msg, &req); err != nil {
		return errorResponse(err)
	}

	meeting, err := h.meetingService.CancelMeeting(ctx, &req)
	if err != nil {
		return errorResponse(err)
	}
	return successResponse(meeting)
}

func (h *SchedulingHandler) handleMeetingDelete(ctx context.Context, msg domain.Message) *models.OperationResponse {
	var req models.DeleteMeetingRequest
	if err := decode(ctx, msg, &req); err != nil {
		return errorResponse(err)
	}

	if err := h.meetingService.DeleteMeeting(ctx, &req); err != nil {
		return errorResponse(err)
	}
	return successResponse(nil)
}

func (h *SchedulingHandler) handleMeetingGet(ctx context.Context, msg domain.Message) *models.OperationResponse {
	var req models.GetMeetingRequest
	if err := decode(ctx, msg, &req); err != nil {
		return errorResponse(err)
	}

	meeting, revision, err := h.meetingService.GetMeeting(ctx, &req)
	if err != nil {
		return errorResponse(err)
	}

	response := successResponse(meeting)
	response.Revision = revision
	return response
}

func (h *SchedulingHandler) handleMeetingList(ctx context.Context, msg domain.Message) *models.OperationResponse {
	var req models.ListMeetingsRequest
	if err := decode(ctx, msg, &req); err != nil {
		return errorResponse(err)
	}

	meetings, err := h.meetingService.ListMeetings(ctx, &req)
	if err != nil {
		return errorResponse(err)
	}
	return successResponse(meetings)
}

func (h *SchedulingHandler) handleParticipantAssign(ctx context.Context, msg domain.Message) *models.OperationResponse {
	var req models.AssignParticipantsRequest
	if err := decode(ctx, msg, &req); err != nil {
		return errorResponse(err)
	}

	resp, err := h.participantService.AssignParticipants(ctx, &req)
	if err != nil {
		return errorResponse(err)
	}
	return successResponse(resp)
}

func (h *SchedulingHandler) handleParticipantRemove(ctx context.Context, msg domain.Message) *models.OperationResponse {
	var req models.RemoveParticipantsRequest
	if err := decode(ctx, msg, &req); err != nil {
		return errorResponse(err)
	}

	meeting, err := h.participantService.RemoveParticipants(ctx, &req)
	if err != nil {
		return errorResponse(err)
	}
	return successResponse(meeting)
}

func (h *SchedulingHandler) handleConflictCheck(ctx context.Context, msg domain.Message) *models.OperationResponse {
	var req models.ConflictCheckRequest
	if err := decode(ctx, msg, &req); err != nil {
		return errorResponse(err)
	}

	resp, err := h.meetingService.CheckConflicts(ctx, &req)
	if err != nil {
		return errorResponse(err)
	}
	return successResponse(resp)
}
