// Package httpx implements the callable JSON protocol: POST requests with a
// JSON body, responses as {"result": ...} or {"error": {"status", "message"}}
// where status is a canonical code name (e.g. FAILED_PRECONDITION).
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// maxBodyBytes caps request bodies; callable payloads are small.
const maxBodyBytes = 1 << 20

// errorBody is the JSON error envelope.
type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type resultEnvelope struct {
	Result any `json:"result"`
}

// DecodeJSON reads the request body into v. Returns an InvalidArgument status
// error on malformed JSON or oversized bodies.
func DecodeJSON(r *http.Request, v any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return status.Error(codes.InvalidArgument, "request body is required")
		}
		return status.Error(codes.InvalidArgument, "malformed request body")
	}
	return nil
}

// WriteResult writes a 200 response with the result envelope.
func WriteResult(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resultEnvelope{Result: result}); err != nil {
		log.Printf("httpx: write response: %v", err)
	}
}

// WriteError writes the error envelope for err. Non-status errors are reported
// as INTERNAL with a generic message; the underlying error is logged only.
func WriteError(w http.ResponseWriter, err error) {
	st, ok := status.FromError(err)
	if !ok || st.Code() == codes.Unknown {
		log.Printf("httpx: internal error: %v", err)
		st = status.New(codes.Internal, "an unexpected error occurred")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(st.Code()))
	body := errorEnvelope{Error: errorBody{Status: statusName(st.Code()), Message: st.Message()}}
	if encErr := json.NewEncoder(w).Encode(body); encErr != nil {
		log.Printf("httpx: write error response: %v", encErr)
	}
}

// HTTPStatus maps a canonical code to its HTTP status per the callable protocol.
func HTTPStatus(c codes.Code) int {
	switch c {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.FailedPrecondition:
		return http.StatusBadRequest
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Canceled:
		return 499
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// statusName returns the canonical SCREAMING_SNAKE name for the code
// (e.g. FAILED_PRECONDITION), the spelling the callable protocol uses.
func statusName(c codes.Code) string {
	switch c {
	case codes.OK:
		return "OK"
	case codes.Canceled:
		return "CANCELLED"
	case codes.InvalidArgument:
		return "INVALID_ARGUMENT"
	case codes.DeadlineExceeded:
		return "DEADLINE_EXCEEDED"
	case codes.NotFound:
		return "NOT_FOUND"
	case codes.AlreadyExists:
		return "ALREADY_EXISTS"
	case codes.PermissionDenied:
		return "PERMISSION_DENIED"
	case codes.ResourceExhausted:
		return "RESOURCE_EXHAUSTED"
	case codes.FailedPrecondition:
		return "FAILED_PRECONDITION"
	case codes.Aborted:
		return "ABORTED"
	case codes.OutOfRange:
		return "OUT_OF_RANGE"
	case codes.Unimplemented:
		return "UNIMPLEMENTED"
	case codes.Unavailable:
		return "UNAVAILABLE"
	case codes.DataLoss:
		return "DATA_LOSS"
	case codes.Unauthenticated:
		return "UNAUTHENTICATED"
	default:
		return "INTERNAL"
	}
}
