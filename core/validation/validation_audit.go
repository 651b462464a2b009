package validation

import (
	"log"
	"os"
	"sync"
)

var auditOnce sync.Once
var auditLogger *log.Logger

func getAuditLogger() *log.Logger {
	auditOnce.Do(func() {
		f, err := os.OpenFile("validation_audit.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("Failed to open validation audit log: %v", err)
		}
		auditLogger = log.New(f, "[VALIDATION] ", log.LstdFlags|log.LUTC)
	})
	return auditLogger
}

// AuditValidationError records rejected payloads (check names and error
// text only, no record contents) to a file for compliance review.
func AuditValidationError(check, errMsg string) {
	logger := getAuditLogger()
	logger.Printf("%s | %s", check, errMsg)
}
