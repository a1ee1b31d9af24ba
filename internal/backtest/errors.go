package backtest

import "errors"

// Errores recuperables por-trade: el engine los salta y sigue con el run.
// Cualquier otro error de simulación aborta el run completo.
var (
	// ErrInsufficientBalance indica que un buy costaría más que el balance
	// disponible. La ejecución se rechaza sin mutar ningún estado.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrBelowMinimumSize indica que el tamaño tras aplicar los límites
	// quedó en cero o negativo.
	ErrBelowMinimumSize = errors.New("position size below minimum")

	// ErrNoOpenPosition indica un cierre contra un mercado sin posición
	// abierta: una violación de contrato entre engine y simulador.
	ErrNoOpenPosition = errors.New("no open position for market")
)
