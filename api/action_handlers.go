package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jmcleod/omiassist/internal/uuid"
	"github.com/jmcleod/omiassist/storage"
)

// ListDestinations handles POST /action/list-destinations.
func (a *API) ListDestinations(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeOptionalJSON[ListRequest](w, r, maxActionBodySize)
	if !ok {
		return
	}
	limit, offset, err := parsePagination(r, req.Cursor)
	if err != nil {
		mapError(w, err)
		return
	}
	id := identityFromContext(r.Context())

	records, err := a.repo.ListDestinations(r.Context(), id.Account.ID)
	if err != nil {
		mapError(w, err)
		return
	}
	start, end, next := paginateSlice(len(records), limit, offset)

	resp := ListDestinationsResponse{
		Destinations: make([]Destination, 0, end-start),
		NextCursor:   next,
	}
	for _, d := range records[start:end] {
		resp.Destinations = append(resp.Destinations, destinationFromRecord(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

// AddAction handles POST /action/add-action. The destination must belong
// to the caller.
func (a *API) AddAction(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[AddActionRequest](w, r, maxActionBodySize)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		mapError(w, fmt.Errorf("%w: prompt is required", errBadRequest))
		return
	}
	if req.DestinationID == "" {
		mapError(w, fmt.Errorf("%w: destination_id is required", errBadRequest))
		return
	}
	id := identityFromContext(r.Context())

	dest, err := a.repo.LoadDestination(r.Context(), id.Account.ID, req.DestinationID)
	if err != nil {
		mapError(w, err)
		return
	}

	action := storage.Action{
		ID:            uuid.New(),
		DestinationID: dest.ID,
		Prompt:        req.Prompt,
		Message:       req.Message,
		CreatedAt:     a.now().UTC(),
	}
	if err := a.repo.InsertAction(r.Context(), &action); err != nil {
		mapError(w, err)
		return
	}

	a.audit.logEvent(AuditActionAdded, r, id.Account.ID,
		slog.String("action_id", action.ID),
		slog.String("destination_id", dest.ID))
	writeJSON(w, http.StatusOK, AddActionResponse{
		Action: actionFromRecord(storage.ActionWithDestination{Action: action, Destination: *dest}),
	})
}

// DeleteAction handles POST /action/delete-action. Deleting an action the
// caller does not own is a silent no-op.
func (a *API) DeleteAction(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[DeleteActionRequest](w, r, maxActionBodySize)
	if !ok {
		return
	}
	if req.ID == "" {
		mapError(w, fmt.Errorf("%w: id is required", errBadRequest))
		return
	}
	id := identityFromContext(r.Context())

	if err := a.repo.DeleteAction(r.Context(), id.Account.ID, req.ID); err != nil {
		mapError(w, err)
		return
	}

	a.audit.logEvent(AuditActionDeleted, r, id.Account.ID, slog.String("action_id", req.ID))
	writeEmpty(w)
}

// ListActions handles POST /action/list-actions.
func (a *API) ListActions(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeOptionalJSON[ListRequest](w, r, maxActionBodySize)
	if !ok {
		return
	}
	limit, offset, err := parsePagination(r, req.Cursor)
	if err != nil {
		mapError(w, err)
		return
	}
	id := identityFromContext(r.Context())

	records, err := a.repo.ListActions(r.Context(), id.Account.ID)
	if err != nil {
		mapError(w, err)
		return
	}
	start, end, next := paginateSlice(len(records), limit, offset)

	resp := ListActionsResponse{
		Actions:    make([]Action, 0, end-start),
		NextCursor: next,
	}
	for _, act := range records[start:end] {
		resp.Actions = append(resp.Actions, actionFromRecord(act))
	}
	writeJSON(w, http.StatusOK, resp)
}
