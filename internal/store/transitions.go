package store

import "github.com/makersnr-dev/qr-order-nr-v5-sub000/internal/models"

// Transition maps are keyed by current status; the value lists the
// statuses reachable from it. Terminal statuses have no entry, which
// makes them immutable by construction.
var storeTransitions = map[string][]string{
	models.StatusReceived:  {models.StatusPreparing, models.StatusCancelled, models.StatusPaymentCancelled},
	models.StatusPreparing: {models.StatusDone, models.StatusCancelled, models.StatusPaymentCancelled},
}

var reserveTransitions = map[string][]string{
	models.StatusUnpaid:    {models.StatusReceived, models.StatusCancelled},
	models.StatusReceived:  {models.StatusPreparing, models.StatusCancelled},
	models.StatusPreparing: {models.StatusDone, models.StatusCancelled},
}

func transitionsFor(orderType string) map[string][]string {
	if orderType == models.TypeReserve {
		return reserveTransitions
	}
	return storeTransitions
}

// InitialStatus is the status an order of the given type is created in.
func InitialStatus(orderType string) string {
	if orderType == models.TypeReserve {
		return models.StatusUnpaid
	}
	return models.StatusReceived
}

func ValidTransition(orderType, from, to string) bool {
	allowed, ok := transitionsFor(orderType)[from]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == to {
			return true
		}
	}
	return false
}

// AllowedFrom lists the statuses from which `to` is reachable for the
// given order type. The postgres layer uses it as the guard set of the
// conditional status UPDATE.
func AllowedFrom(orderType, to string) []string {
	var from []string
	for status, nexts := range transitionsFor(orderType) {
		for _, next := range nexts {
			if next == to {
				from = append(from, status)
				break
			}
		}
	}
	return from
}

func IsTerminal(orderType, status string) bool {
	_, ok := transitionsFor(orderType)[status]
	return !ok
}

func KnownStatus(orderType, status string) bool {
	transitions := transitionsFor(orderType)
	if _, ok := transitions[status]; ok {
		return true
	}
	for _, nexts := range transitions {
		for _, next := range nexts {
			if next == status {
				return true
			}
		}
	}
	return false
}
