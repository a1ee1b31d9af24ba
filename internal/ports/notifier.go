package ports

import "github.com/alejandrodnm/copybot/internal/domain"

// Notifier presenta el resultado de un run al usuario.
type Notifier interface {
	PrintRun(run domain.BacktestRun) error
}
