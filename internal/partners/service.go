package partners

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/freshcart/grocery-backend/internal/identity"
	pkgdb "github.com/freshcart/grocery-backend/pkg/db"
	"github.com/freshcart/grocery-backend/pkg/db/models"
	"github.com/freshcart/grocery-backend/pkg/enums"
	pkgerrors "github.com/freshcart/grocery-backend/pkg/errors"
	"github.com/freshcart/grocery-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	partnerNotFound       = "delivery partner not found"
	partnerUserConstraint = "delivery_partners_user_id_key"
)

// Service manages delivery partner profiles and availability.
type Service interface {
	Register(ctx context.Context, actor identity.Actor, input RegisterInput) (*PartnerDTO, error)
	Get(ctx context.Context, actor identity.Actor, partnerID uuid.UUID) (*PartnerDTO, error)
	Me(ctx context.Context, actor identity.Actor) (*PartnerDTO, error)
	List(ctx context.Context, actor identity.Actor) ([]PartnerDTO, error)
	ListAvailable(ctx context.Context, actor identity.Actor) ([]PartnerDTO, error)
	SetAvailability(ctx context.Context, actor identity.Actor, partnerID uuid.UUID, available bool) (*PartnerDTO, error)
	Update(ctx context.Context, actor identity.Actor, partnerID uuid.UUID, input UpdateInput) (*PartnerDTO, error)
	UpdateLocation(ctx context.Context, actor identity.Actor, location types.LatLng) (*PartnerDTO, error)
	Delete(ctx context.Context, actor identity.Actor, partnerID uuid.UUID) error
}

type partnerRepository interface {
	Create(ctx context.Context, partner *models.DeliveryPartner) (*models.DeliveryPartner, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.DeliveryPartner, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.DeliveryPartner, error)
	List(ctx context.Context, availableOnly bool) ([]models.DeliveryPartner, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.DeliveryPartner, error)
	DeleteIdle(ctx context.Context, id uuid.UUID) (int64, error)
	CountActiveOrders(ctx context.Context, id uuid.UUID) (int64, error)
}

type roleLookup interface {
	FindRole(ctx context.Context, id uuid.UUID) (enums.UserRole, error)
}

type service struct {
	repo  partnerRepository
	users roleLookup
}

// NewService builds the partner registry service.
func NewService(repo partnerRepository, users roleLookup) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("partner repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user role lookup required")
	}
	return &service{repo: repo, users: users}, nil
}

func (s *service) Register(ctx context.Context, actor identity.Actor, input RegisterInput) (*PartnerDTO, error) {
	var userID uuid.UUID
	switch actor.Role {
	case enums.UserRoleDeliveryPartner:
		userID = actor.UserID
	case enums.UserRoleOwner:
		if input.UserID == nil || *input.UserID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "user_id is required")
		}
		userID = *input.UserID
		role, err := s.users.FindRole(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user role")
		}
		if role != enums.UserRoleDeliveryPartner {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "user is not a delivery partner")
		}
	case enums.UserRoleCustomer:
		return nil, forbidden()
	default:
		return nil, unauthenticated()
	}

	name, phone, vehicle := strings.TrimSpace(input.Name), strings.TrimSpace(input.Phone), strings.TrimSpace(input.VehicleNumber)
	if name == "" || phone == "" || vehicle == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name, phone and vehicle number are required")
	}

	if _, err := s.repo.FindByUserID(ctx, userID); err == nil {
		return nil, duplicate()
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing partner")
	}

	created, err := s.repo.Create(ctx, &models.DeliveryPartner{
		UserID:        userID,
		Name:          name,
		Phone:         phone,
		VehicleNumber: vehicle,
		IsAvailable:   input.IsAvailable,
	})
	if err != nil {
		if pkgdb.IsUniqueViolation(err, partnerUserConstraint) {
			return nil, duplicate()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create partner")
	}
	return FromModel(created), nil
}

func (s *service) Get(ctx context.Context, actor identity.Actor, partnerID uuid.UUID) (*PartnerDTO, error) {
	switch actor.Role {
	case enums.UserRoleOwner:
		partner, err := s.repo.FindByID(ctx, partnerID)
		if err != nil {
			return nil, lookupError(err)
		}
		return FromModel(partner), nil
	case enums.UserRoleDeliveryPartner:
		partner, err := s.self(ctx, actor)
		if err != nil {
			return nil, err
		}
		if partner.ID != partnerID {
			return nil, forbidden()
		}
		return FromModel(partner), nil
	case enums.UserRoleCustomer:
		return nil, forbidden()
	default:
		return nil, unauthenticated()
	}
}

func (s *service) Me(ctx context.Context, actor identity.Actor) (*PartnerDTO, error) {
	if err := requireRole(actor, enums.UserRoleDeliveryPartner); err != nil {
		return nil, err
	}
	partner, err := s.repo.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery profile not registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load partner")
	}
	return FromModel(partner), nil
}

func (s *service) List(ctx context.Context, actor identity.Actor) ([]PartnerDTO, error) {
	return s.list(ctx, actor, false)
}

func (s *service) ListAvailable(ctx context.Context, actor identity.Actor) ([]PartnerDTO, error) {
	return s.list(ctx, actor, true)
}

func (s *service) list(ctx context.Context, actor identity.Actor, availableOnly bool) ([]PartnerDTO, error) {
	if err := requireRole(actor, enums.UserRoleOwner); err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, availableOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list partners")
	}
	return fromModels(rows), nil
}

func (s *service) SetAvailability(ctx context.Context, actor identity.Actor, partnerID uuid.UUID, available bool) (*PartnerDTO, error) {
	switch actor.Role {
	case enums.UserRoleOwner:
	case enums.UserRoleDeliveryPartner:
		partner, err := s.self(ctx, actor)
		if err != nil {
			return nil, err
		}
		if partner.ID != partnerID {
			return nil, forbidden()
		}
	case enums.UserRoleCustomer:
		return nil, forbidden()
	default:
		return nil, unauthenticated()
	}

	updated, err := s.repo.Update(ctx, partnerID, map[string]any{"is_available": available})
	if err != nil {
		return nil, lookupError(err)
	}
	return FromModel(updated), nil
}

func (s *service) Update(ctx context.Context, actor identity.Actor, partnerID uuid.UUID, input UpdateInput) (*PartnerDTO, error) {
	if err := requireRole(actor, enums.UserRoleOwner); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	for column, value := range map[string]*string{
		"name":           input.Name,
		"phone":          input.Phone,
		"vehicle_number": input.VehicleNumber,
	} {
		if value == nil {
			continue
		}
		v := strings.TrimSpace(*value)
		if v == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, column+" cannot be empty")
		}
		updates[column] = v
	}
	if input.CurrentLocation != nil {
		point, err := toPoint(*input.CurrentLocation)
		if err != nil {
			return nil, err
		}
		updates["current_location"] = point
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	updated, err := s.repo.Update(ctx, partnerID, updates)
	if err != nil {
		return nil, lookupError(err)
	}
	return FromModel(updated), nil
}

func (s *service) UpdateLocation(ctx context.Context, actor identity.Actor, location types.LatLng) (*PartnerDTO, error) {
	if err := requireRole(actor, enums.UserRoleDeliveryPartner); err != nil {
		return nil, err
	}
	partner, err := s.self(ctx, actor)
	if err != nil {
		return nil, err
	}
	point, err := toPoint(location)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, partner.ID, map[string]any{"current_location": point})
	if err != nil {
		return nil, lookupError(err)
	}
	return FromModel(updated), nil
}

func (s *service) Delete(ctx context.Context, actor identity.Actor, partnerID uuid.UUID) error {
	if err := requireRole(actor, enums.UserRoleOwner); err != nil {
		return err
	}
	deleted, err := s.repo.DeleteIdle(ctx, partnerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete partner")
	}
	if deleted == 1 {
		return nil
	}

	if _, err := s.repo.FindByID(ctx, partnerID); err != nil {
		return lookupError(err)
	}
	active, err := s.repo.CountActiveOrders(ctx, partnerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count partner orders")
	}
	return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("delivery partner has %d active order(s)", active))
}

// self resolves the caller's own profile. A partner without a profile cannot
// act on any partner id.
func (s *service) self(ctx context.Context, actor identity.Actor) (*models.DeliveryPartner, error) {
	partner, err := s.repo.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, forbidden()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load partner")
	}
	return partner, nil
}

func toPoint(location types.LatLng) (types.GeoPoint, error) {
	point := location.ToGeoPoint()
	if err := point.Validate(); err != nil {
		return types.GeoPoint{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid location")
	}
	return point, nil
}

func requireRole(actor identity.Actor, role enums.UserRole) error {
	if !actor.Role.IsValid() {
		return unauthenticated()
	}
	if !actor.Is(role) {
		return forbidden()
	}
	return nil
}

func lookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, partnerNotFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load partner")
}

func duplicate() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "delivery partner already registered for this user")
}

func forbidden() error {
	return pkgerrors.New(pkgerrors.CodeForbidden, "not permitted")
}

func unauthenticated() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
}
