package experiment

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/xaenox/shopbot-experiment/internal/models"
)

var ErrUnknownGroup = errors.New("unknown experiment group")

// groups is the 2x2 design: adaptivity x calibration
var groups = map[string]models.Condition{
	"A": {Adaptivity: models.LevelLow, Calibration: models.LevelLow},
	"B": {Adaptivity: models.LevelLow, Calibration: models.LevelHigh},
	"C": {Adaptivity: models.LevelHigh, Calibration: models.LevelLow},
	"D": {Adaptivity: models.LevelHigh, Calibration: models.LevelHigh},
}

func ConditionFor(group string) (models.Condition, error) {
	cond, ok := groups[group]
	if !ok {
		return models.Condition{}, fmt.Errorf("%w: %q", ErrUnknownGroup, group)
	}
	return cond, nil
}

// Groups returns the group identifiers in sorted order
func Groups() []string {
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type Assigner interface {
	Assign() string
}

// RandomAssigner picks a group uniformly at random
type RandomAssigner struct {
	mu  sync.Mutex
	rng *rand.Rand
	ids []string
}

func NewRandomAssigner(seed int64) *RandomAssigner {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomAssigner{
		rng: rand.New(rand.NewSource(seed)),
		ids: Groups(),
	}
}

func (a *RandomAssigner) Assign() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ids[a.rng.Intn(len(a.ids))]
}

// FixedAssigner always assigns the same group
type FixedAssigner string

func (f FixedAssigner) Assign() string { return string(f) }
