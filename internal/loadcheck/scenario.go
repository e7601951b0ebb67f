// Package loadcheck drives concurrent engagement traffic through the service
// layer and then verifies that stored counters still match their edge rows.
package loadcheck

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Op names one kind of request in a scenario mix.
type Op string

const (
	OpLike     Op = "like"
	OpFollow   Op = "follow"
	OpUnfollow Op = "unfollow"
	OpComment  Op = "comment"
	OpJoin     Op = "join"
	OpLeave    Op = "leave"
	OpFeed     Op = "feed"
)

var knownOps = map[Op]bool{
	OpLike: true, OpFollow: true, OpUnfollow: true, OpComment: true,
	OpJoin: true, OpLeave: true, OpFeed: true,
}

// Scenario describes a run. Each worker performs OpsPerWorker operations,
// stopping early if Duration elapses.
type Scenario struct {
	Name         string        `yaml:"name"`
	Workers      int           `yaml:"workers"`
	OpsPerWorker int           `yaml:"ops_per_worker"`
	Duration     time.Duration `yaml:"duration"`
	Seed         uint64        `yaml:"seed"`
	Mix          map[Op]int    `yaml:"mix"`
}

// DefaultScenario is a short contention-heavy mix.
func DefaultScenario() Scenario {
	return Scenario{
		Name:         "default",
		Workers:      8,
		OpsPerWorker: 200,
		Duration:     time.Minute,
		Seed:         1,
		Mix: map[Op]int{
			OpLike:     35,
			OpFollow:   15,
			OpUnfollow: 10,
			OpComment:  15,
			OpJoin:     8,
			OpLeave:    5,
			OpFeed:     12,
		},
	}
}

// Validate checks worker counts and the op mix.
func (s Scenario) Validate() error {
	if s.Workers <= 0 {
		return errors.New("workers must be positive")
	}
	if s.OpsPerWorker <= 0 {
		return errors.New("ops_per_worker must be positive")
	}
	total := 0
	for op, w := range s.Mix {
		if !knownOps[op] {
			return fmt.Errorf("unknown op %q", op)
		}
		if w < 0 {
			return fmt.Errorf("op %q has negative weight", op)
		}
		total += w
	}
	if total == 0 {
		return errors.New("mix must have at least one positive weight")
	}
	return nil
}

// LoadScenario decodes a YAML scenario, filling unset fields from DefaultScenario.
func LoadScenario(r io.Reader) (Scenario, error) {
	sc := DefaultScenario()
	sc.Mix = nil
	if err := yaml.NewDecoder(r).Decode(&sc); err != nil {
		return Scenario{}, fmt.Errorf("decode scenario: %w", err)
	}
	if sc.Mix == nil {
		sc.Mix = DefaultScenario().Mix
	}
	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

// LoadScenarioFile reads a scenario from path.
func LoadScenarioFile(path string) (Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return Scenario{}, err
	}
	defer func() { _ = f.Close() }()
	return LoadScenario(f)
}

// picker selects ops by weight.
type picker struct {
	ops    []Op
	cumul  []int
	weight int
}

func newPicker(mix map[Op]int) *picker {
	ops := make([]Op, 0, len(mix))
	for op, w := range mix {
		if w > 0 {
			ops = append(ops, op)
		}
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })

	p := &picker{ops: ops, cumul: make([]int, len(ops))}
	for i, op := range ops {
		p.weight += mix[op]
		p.cumul[i] = p.weight
	}
	return p
}

// pick maps n in [0, weight) to an op.
func (p *picker) pick(n int) Op {
	i := sort.SearchInts(p.cumul, n+1)
	return p.ops[i]
}
