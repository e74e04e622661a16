package orders

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assignmentpoint-backend/pkg/errors"
)

// allowedTransitions is the order lifecycle graph. Edges into IN_PROGRESS are only taken by
// bid acceptance or admin assignment, never by TransitionStatus.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusAvailable:  {enums.OrderStatusInProgress, enums.OrderStatusCanceled},
	enums.OrderStatusInProgress: {enums.OrderStatusInReview, enums.OrderStatusDisputed},
	enums.OrderStatusInReview:   {enums.OrderStatusRevision, enums.OrderStatusCompleted, enums.OrderStatusDisputed},
	enums.OrderStatusRevision:   {enums.OrderStatusInReview, enums.OrderStatusDisputed},
	enums.OrderStatusDisputed:   {enums.OrderStatusCompleted, enums.OrderStatusCanceled},
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func transitionError(from, to enums.OrderStatus) error {
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move order from %s to %s", from, to).
		WithDetails(map[string]any{"from": from, "to": to})
}

// authorizeTransition applies the per-role rules on top of a legal edge.
func authorizeTransition(order *models.Order, to enums.OrderStatus, actorID uuid.UUID, role enums.Role) error {
	switch role {
	case enums.RoleAdmin:
		return nil
	case enums.RoleWriter:
		if order.WriterID == nil || *order.WriterID != actorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this writer")
		}
		if to == enums.OrderStatusInReview {
			return nil
		}
	case enums.RoleCustomer:
		if order.CustomerID != actorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
		}
		switch to {
		case enums.OrderStatusRevision, enums.OrderStatusDisputed:
			return nil
		case enums.OrderStatusCompleted:
			if order.Status == enums.OrderStatusInReview {
				return nil
			}
		case enums.OrderStatusCanceled:
			if order.Status == enums.OrderStatusAvailable {
				return nil
			}
		}
	}
	return pkgerrors.Newf(pkgerrors.CodeForbidden, "role %s may not move order to %s", role, to)
}

// CanView reports whether the actor may read the order and its files. Any writer may read
// an AVAILABLE order so they can decide whether to bid.
func CanView(order *models.Order, actorID uuid.UUID, role enums.Role) bool {
	switch role {
	case enums.RoleAdmin:
		return true
	case enums.RoleCustomer:
		return order.CustomerID == actorID
	case enums.RoleWriter:
		if order.Status == enums.OrderStatusAvailable {
			return true
		}
		return order.WriterID != nil && *order.WriterID == actorID
	case enums.RoleWriterManager:
		return order.ManagerID != nil && *order.ManagerID == actorID
	case enums.RoleEditor:
		return order.EditorID != nil && *order.EditorID == actorID
	case enums.RoleSalesAgent:
		return order.SalesAgentID != nil && *order.SalesAgentID == actorID
	}
	return false
}
