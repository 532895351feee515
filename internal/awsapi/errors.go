package awsapi

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"
)

// Not-found error codes of the services this module queries.
var notFoundCodes = map[string]bool{
	"NotFound":                  true, // s3 HeadBucket, HeadObject
	"NoSuchBucket":              true,
	"NoSuchKey":                 true,
	"ResourceNotFoundException": true, // secretsmanager, kinesis, lambda
	"DBClusterNotFoundFault":    true,
	"ClusterNotFound":           true, // redshift
	"EntityNotFoundException":   true, // glue
	"NoSuchEntity":              true, // iam
	"NotFoundException":         true, // kafka
	"InvalidGroup.NotFound":     true,
	"InvalidVpcID.NotFound":     true,
}

// IsNotFound reports whether err is an API error meaning the resource does
// not exist.
func IsNotFound(err error) bool {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return false
	}
	if notFoundCodes[ae.ErrorCode()] {
		return true
	}
	// cloudformation reports a missing stack as a validation error
	return ae.ErrorCode() == "ValidationError" && strings.Contains(ae.ErrorMessage(), "does not exist")
}

// ErrorCode returns the API error code of err, or "".
func ErrorCode(err error) string {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return ae.ErrorCode()
	}
	return ""
}
