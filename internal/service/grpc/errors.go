package grpcsvc

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// errorKindKey — trailer с видом доменной ошибки: по коду gRPC виды не всегда различимы
// (нехватка средств и недопустимый переход оба FailedPrecondition).
const errorKindKey = "foodorder-error-kind"

type errorKind struct {
	name string
	kind error
	code codes.Code
}

var errorKinds = []errorKind{
	{name: "validation", kind: domain.ErrValidation, code: codes.InvalidArgument},
	{name: "not_found", kind: domain.ErrNotFound, code: codes.NotFound},
	{name: "authorization", kind: domain.ErrAuthorization, code: codes.PermissionDenied},
	{name: "external_unavailable", kind: domain.ErrExternalUnavailable, code: codes.Unavailable},
	{name: "insufficient_funds", kind: domain.ErrInsufficientFunds, code: codes.FailedPrecondition},
	{name: "persistence", kind: domain.ErrPersistence, code: codes.Internal},
	{name: "invalid_state_transition", kind: domain.ErrInvalidStateTransition, code: codes.FailedPrecondition},
}

// toStatus переводит доменную ошибку в gRPC-статус. Детали ошибок хранилища наружу не отдаются.
func toStatus(err error) (*status.Status, string) {
	switch {
	case errors.Is(err, context.Canceled):
		return status.New(codes.Canceled, err.Error()), ""
	case errors.Is(err, context.DeadlineExceeded):
		return status.New(codes.DeadlineExceeded, err.Error()), ""
	}

	kind := domain.KindOf(err)
	for _, k := range errorKinds {
		if k.kind != kind {
			continue
		}
		msg := err.Error()
		if k.code == codes.Internal {
			msg = internalMessage(err)
		}
		if errors.Is(err, domain.ErrOrderAlreadyExists) {
			return status.New(codes.AlreadyExists, msg), k.name
		}
		return status.New(k.code, msg), k.name
	}
	return status.New(codes.Internal, "internal error"), ""
}

func internalMessage(err error) string {
	for _, known := range []error{domain.ErrOrderPersistence, domain.ErrOrderAlreadyExists, domain.ErrOutboxPublish} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "internal error"
}

// remoteError — ошибка сервера на стороне клиента: разворачивается в доменную ошибку
// и сохраняет исходный gRPC-статус для status.Code.
type remoteError struct {
	target error
	st     *status.Status
}

func (e *remoteError) Error() string { return e.st.Message() }

func (e *remoteError) Unwrap() error { return e.target }

func (e *remoteError) GRPCStatus() *status.Status { return e.st }

// specificErrors — конкретные ошибки, которые клиент узнаёт по тексту статуса.
var specificErrors = []error{
	domain.ErrInvalidInput,
	domain.ErrEmptyCart,
	domain.ErrDifferentRestaurant,
	domain.ErrUserIDRequired,
	domain.ErrRestaurantIDRequired,
	domain.ErrTotalMismatch,
	domain.ErrRestaurantClosed,
	domain.ErrCartLineNotFound,
	domain.ErrOrderNotFound,
	domain.ErrRestaurantNotFound,
	domain.ErrUserNotFound,
	domain.ErrAddressNotFound,
	domain.ErrCompensationNotFound,
	domain.ErrAddressNotOwned,
	domain.ErrOrderPersistence,
	domain.ErrOrderAlreadyExists,
	domain.ErrOutboxPublish,
	domain.ErrOrderUpdate,
}

// FromStatus восстанавливает доменную ошибку на стороне клиента: вид берётся из trailer,
// конкретная ошибка из текста статуса.
func FromStatus(err error, trailer metadata.MD) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	if values := trailer.Get(errorKindKey); len(values) > 0 {
		for _, k := range errorKinds {
			if k.name != values[0] {
				continue
			}
			target := k.kind
			for _, specific := range specificErrors {
				if errors.Is(specific, k.kind) && strings.Contains(st.Message(), specific.Error()) {
					target = specific
					break
				}
			}
			return &remoteError{target: target, st: st}
		}
	}

	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded:
		return &remoteError{target: domain.ErrExternalUnavailable, st: st}
	case codes.Canceled:
		return &remoteError{target: context.Canceled, st: st}
	default:
		return err
	}
}
