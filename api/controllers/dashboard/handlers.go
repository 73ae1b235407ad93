package dashboard

import (
	"net/http"

	"github.com/freshcart/grocery-backend/api/middleware"
	"github.com/freshcart/grocery-backend/api/responses"
	internaldashboard "github.com/freshcart/grocery-backend/internal/dashboard"
	"github.com/freshcart/grocery-backend/pkg/enums"
	pkgerrors "github.com/freshcart/grocery-backend/pkg/errors"
	"github.com/freshcart/grocery-backend/pkg/logger"
)

// Summary serves the dashboard counts for the caller's role.
func Summary(projection internaldashboard.Projection, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var summary any
		switch actor.Role {
		case enums.UserRoleOwner:
			summary, err = projection.OwnerSummary(r.Context())
		case enums.UserRoleCustomer:
			summary, err = projection.CustomerSummary(r.Context(), actor.UserID)
		case enums.UserRoleDeliveryPartner:
			summary, err = projection.PartnerSummary(r.Context(), actor.UserID)
		default:
			err = pkgerrors.New(pkgerrors.CodeForbidden, "role required")
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
