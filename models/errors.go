package models

// IsNotFoundError returns whether an error represents a "not found" error.
func IsNotFoundError(err error) bool {
	switch err.(type) {
	case ModelNotFoundError:
		return true
	}
	return false
}

// ModelNotFoundError represents when an instance is not found.
type ModelNotFoundError struct {
	modelName string
}

func (e ModelNotFoundError) Error() string {
	return e.modelName + " not found"
}

// IsDuplicateOrderError returns whether an error represents an order
// identifier collision.
func IsDuplicateOrderError(err error) bool {
	switch err.(type) {
	case DuplicateOrderError:
		return true
	}
	return false
}

// DuplicateOrderError is returned when an order is staged with an
// identifier that has already been used.
type DuplicateOrderError struct {
	OrderID string
}

func (e DuplicateOrderError) Error() string {
	return "an order with id '" + e.OrderID + "' already exists"
}
