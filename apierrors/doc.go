// Package apierrors defines the service's error taxonomy.
//
// The apierrors package provides tagged errors that carry a machine-readable
// kind matching the wire-level error_type values. Stages of the execution
// pipeline return tagged errors; translation to HTTP status codes happens in
// exactly one place at the transport boundary.
//
// Usage:
//
//	err := apierrors.New(apierrors.KindValidation, "Script content cannot be empty")
//	status := apierrors.HTTPStatus(apierrors.KindOf(err))
package apierrors
