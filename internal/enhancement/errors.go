package enhancement

import (
	"fmt"

	"github.com/danja/semem/internal/model"
)

func errUnknownProvider(name model.EnhancementProvider) error {
	return fmt.Errorf("enhancement: no provider registered for %q", name)
}

func errCircuitOpen(name model.EnhancementProvider) error {
	return fmt.Errorf("enhancement: circuit open for provider %q", name)
}
