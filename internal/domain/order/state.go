package order

// orderState implements the state pattern for order lifecycle transitions.
// pending fans out to confirmed, payment_failed, or inventory_failed; only
// confirmed orders proceed to shipped and delivered. Failed states are
// terminal for this core.
type orderState interface {
	Status() Status
	OnPaymentSucceeded(o *Order) (orderState, error)
	OnPaymentFailed(o *Order) (orderState, error)
	OnInventoryFailed(o *Order) (orderState, error)
	OnShipped(o *Order) (orderState, error)
	OnDelivered(o *Order) (orderState, error)
}

func (o *Order) state() orderState {
	switch o.Status {
	case StatusPending:
		return pendingState{}
	case StatusConfirmed:
		return confirmedState{}
	case StatusPaymentFailed:
		return paymentFailedState{}
	case StatusInventoryFailed:
		return inventoryFailedState{}
	case StatusShipped:
		return shippedState{}
	case StatusDelivered:
		return deliveredState{}
	default:
		return invalidState{status: o.Status}
	}
}

type pendingState struct{}

func (pendingState) Status() Status { return StatusPending }

func (pendingState) OnPaymentSucceeded(*Order) (orderState, error) { return confirmedState{}, nil }

func (pendingState) OnPaymentFailed(*Order) (orderState, error) { return paymentFailedState{}, nil }

func (pendingState) OnInventoryFailed(*Order) (orderState, error) {
	return inventoryFailedState{}, nil
}

func (pendingState) OnShipped(*Order) (orderState, error) { return nil, ErrInvalidStateTransition }

func (pendingState) OnDelivered(*Order) (orderState, error) { return nil, ErrInvalidStateTransition }

type confirmedState struct{}

func (confirmedState) Status() Status { return StatusConfirmed }

func (confirmedState) OnPaymentSucceeded(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (confirmedState) OnPaymentFailed(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (confirmedState) OnInventoryFailed(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (confirmedState) OnShipped(*Order) (orderState, error) { return shippedState{}, nil }

func (confirmedState) OnDelivered(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

type paymentFailedState struct{}

func (paymentFailedState) Status() Status { return StatusPaymentFailed }

func (paymentFailedState) OnPaymentSucceeded(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (paymentFailedState) OnPaymentFailed(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (paymentFailedState) OnInventoryFailed(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (paymentFailedState) OnShipped(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (paymentFailedState) OnDelivered(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

type inventoryFailedState struct{}

func (inventoryFailedState) Status() Status { return StatusInventoryFailed }

func (inventoryFailedState) OnPaymentSucceeded(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (inventoryFailedState) OnPaymentFailed(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (inventoryFailedState) OnInventoryFailed(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (inventoryFailedState) OnShipped(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (inventoryFailedState) OnDelivered(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

type shippedState struct{}

func (shippedState) Status() Status { return StatusShipped }

func (shippedState) OnPaymentSucceeded(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (shippedState) OnPaymentFailed(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (shippedState) OnInventoryFailed(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (shippedState) OnShipped(*Order) (orderState, error) { return nil, ErrInvalidStateTransition }

func (shippedState) OnDelivered(*Order) (orderState, error) { return deliveredState{}, nil }

type deliveredState struct{}

func (deliveredState) Status() Status { return StatusDelivered }

func (deliveredState) OnPaymentSucceeded(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (deliveredState) OnPaymentFailed(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (deliveredState) OnInventoryFailed(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (deliveredState) OnShipped(*Order) (orderState, error) { return nil, ErrInvalidStateTransition }

func (deliveredState) OnDelivered(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

type invalidState struct{ status Status }

func (s invalidState) Status() Status { return s.status }

func (invalidState) OnPaymentSucceeded(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (invalidState) OnPaymentFailed(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (invalidState) OnInventoryFailed(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func (invalidState) OnShipped(*Order) (orderState, error) { return nil, ErrInvalidStateTransition }

func (invalidState) OnDelivered(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}
