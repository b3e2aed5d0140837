package exceptions

import (
	"errors"
	"fmt"
)

type ServiceError struct {
	StatusCode int
	Cause      error
}

func (se *ServiceError) Error() string {
	return se.Cause.Error()
}

func (se *ServiceError) Unwrap() error {
	return se.Cause
}

type RequestError interface {
	ToServiceError() *ServiceError
	Error() string
}

type NotFoundError struct {
	Resource string
	Id       string
}

func (nfe *NotFoundError) Error() string {
	return fmt.Sprintf("Could not find a %s with id: %s", nfe.Resource, nfe.Id)
}

func (nfe *NotFoundError) ToServiceError() *ServiceError {
	return &ServiceError{
		StatusCode: 404,
		Cause:      nfe,
	}
}

func NotFound(resource string, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Id:       id,
	}
}

type InvalidInputError struct {
	Message string
}

func (ie *InvalidInputError) Error() string {
	return ie.Message
}

func (ie *InvalidInputError) ToServiceError() *ServiceError {
	return &ServiceError{
		StatusCode: 400,
		Cause:      ie,
	}
}

func InvalidInput(message string) *InvalidInputError {
	return &InvalidInputError{
		Message: message,
	}
}

type UnauthorizedError struct {
	Message string
}

func (ue *UnauthorizedError) Error() string {
	return ue.Message
}

func (ue *UnauthorizedError) ToServiceError() *ServiceError {
	return &ServiceError{
		StatusCode: 401,
		Cause:      ue,
	}
}

func Unauthorized(message string) *UnauthorizedError {
	return &UnauthorizedError{
		Message: message,
	}
}

// ProviderUnavailableError is a network, HTTP or decoding failure talking
// to the recipe provider.
type ProviderUnavailableError struct {
	Operation string
	Cause     error
}

func (pe *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("Recipe provider failed during %s: %v", pe.Operation, pe.Cause)
}

func (pe *ProviderUnavailableError) Unwrap() error {
	return pe.Cause
}

func (pe *ProviderUnavailableError) ToServiceError() *ServiceError {
	return &ServiceError{
		StatusCode: 502,
		Cause:      pe,
	}
}

func ProviderUnavailable(operation string, cause error) *ProviderUnavailableError {
	return &ProviderUnavailableError{
		Operation: operation,
		Cause:     cause,
	}
}

// ProviderEmptyError is a valid provider response with zero results.
type ProviderEmptyError struct {
	Query string
}

func (pe *ProviderEmptyError) Error() string {
	return fmt.Sprintf("No recipes found for: %s", pe.Query)
}

func (pe *ProviderEmptyError) ToServiceError() *ServiceError {
	return &ServiceError{
		StatusCode: 404,
		Cause:      pe,
	}
}

func ProviderEmpty(query string) *ProviderEmptyError {
	return &ProviderEmptyError{
		Query: query,
	}
}

// StaleSelectionError is a button action whose recipe is not part of the
// conversation's current result set.
type StaleSelectionError struct {
	RecipeId int64
}

func (se *StaleSelectionError) Error() string {
	return fmt.Sprintf("Recipe %d is not part of the current search results", se.RecipeId)
}

func (se *StaleSelectionError) ToServiceError() *ServiceError {
	return &ServiceError{
		StatusCode: 409,
		Cause:      se,
	}
}

func StaleSelection(recipeId int64) *StaleSelectionError {
	return &StaleSelectionError{
		RecipeId: recipeId,
	}
}

type StorageFailureError struct {
	Operation string
	Cause     error
}

func (sf *StorageFailureError) Error() string {
	return fmt.Sprintf("Storage failed during %s: %v", sf.Operation, sf.Cause)
}

func (sf *StorageFailureError) Unwrap() error {
	return sf.Cause
}

func (sf *StorageFailureError) ToServiceError() *ServiceError {
	return &ServiceError{
		StatusCode: 503,
		Cause:      sf,
	}
}

func StorageFailure(operation string, cause error) *StorageFailureError {
	return &StorageFailureError{
		Operation: operation,
		Cause:     cause,
	}
}

// StatusCode resolves the HTTP status for any error, defaulting to 500.
func StatusCode(err error) int {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	var re RequestError
	if errors.As(err, &re) {
		return re.ToServiceError().StatusCode
	}
	return 500
}
