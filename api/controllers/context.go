package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Abdallah-AbouHamdan/SHOP-4U/api/middleware"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/api/validators"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/enums"
	pkgerrors "github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/errors"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/outbox"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/pagination"
)

type requestActor struct {
	UserID uuid.UUID
	Role   enums.MemberRole
}

func actorFromRequest(r *http.Request) (requestActor, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return requestActor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return requestActor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	role, err := enums.ParseMemberRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return requestActor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid role")
	}
	return requestActor{UserID: userID, Role: role}, nil
}

// optionalActorFromRequest tolerates anonymous callers on public reads.
func optionalActorFromRequest(r *http.Request) requestActor {
	actor, err := actorFromRequest(r)
	if err != nil {
		return requestActor{}
	}
	return actor
}

func (a requestActor) ref() *outbox.ActorRef {
	return &outbox.ActorRef{UserID: a.UserID, Role: string(a.Role)}
}

func parseLimit(r *http.Request) (int, error) {
	return validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
}

func pathUUID(value, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, field+" must be a valid uuid")
	}
	return id, nil
}
