package registry

import (
	"fmt"

	"github.com/yourusername/clever-forecast/internal/models"
)

// Key addresses one model artifact
type Key struct {
	Sport  models.Sport
	Market models.Market
	State  models.TemporalState
	Family models.ModelFamily
}

// String renders the key as sport/market/state/family
func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.Sport, k.Market, k.State, k.Family)
}
