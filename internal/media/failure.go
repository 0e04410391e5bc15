package media

import "fmt"

// ErrorCode identifies why a file was not processed.
type ErrorCode string

const (
	CodeUnknownFileType ErrorCode = "unknown-file-type"
	CodeInvalidType     ErrorCode = "file-invalid-type"
	CodeFileTooSmall    ErrorCode = "file-too-small"
	CodeFileTooLarge    ErrorCode = "file-too-large"
	CodeTooFewFiles     ErrorCode = "too-few-files"
	CodeTooManyFiles    ErrorCode = "too-many-files"
)

// ProcessingErrorCode returns the "<kind>-processing-error" code.
func ProcessingErrorCode(k Kind) ErrorCode {
	return ErrorCode(k.String() + "-processing-error")
}

// Failure is the reason attached to an unprocessed file.
type Failure struct {
	FileName string    `json:"file_name"`
	Code     ErrorCode `json:"error_code"`
	Message  string    `json:"message"`
}

// NewFailure builds a Failure with a formatted message.
func NewFailure(fileName string, code ErrorCode, format string, args ...any) Failure {
	return Failure{FileName: fileName, Code: code, Message: fmt.Sprintf(format, args...)}
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %s: %s", f.FileName, f.Code, f.Message)
}
