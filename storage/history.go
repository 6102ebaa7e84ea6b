package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"

	"basketswap/core/types"
)

var (
	runIndexPrefix = []byte("runs/")
	runStepPrefix  = []byte("run/")
)

// StepRecord is the persisted outcome of one replayed scenario step.
type StepRecord struct {
	Run        string         `json:"run"`
	Step       int            `json:"step"`
	Op         string         `json:"op"`
	Reason     string         `json:"reason,omitempty"`
	BasketRoot string         `json:"basketRoot"`
	PoolRoot   string         `json:"poolRoot"`
	Events     []*types.Event `json:"events,omitempty"`
}

// History stores scenario replays keyed by run name and step index.
type History struct {
	db Database
}

func NewHistory(db Database) *History {
	return &History{db: db}
}

func validRun(run string) error {
	if strings.TrimSpace(run) == "" || strings.Contains(run, "/") {
		return fmt.Errorf("history: invalid run name %q", run)
	}
	return nil
}

func stepKey(run string, step int) []byte {
	key := append([]byte(nil), runStepPrefix...)
	key = append(key, run...)
	key = append(key, '/')
	return binary.BigEndian.AppendUint64(key, uint64(step))
}

// Record stores rec, replacing any earlier record for the same run and step.
func (h *History) Record(rec StepRecord) error {
	if err := validRun(rec.Run); err != nil {
		return err
	}
	if rec.Step < 0 {
		return fmt.Errorf("history: negative step %d", rec.Step)
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("history: encode step %d: %w", rec.Step, err)
	}
	if err := h.db.Put(stepKey(rec.Run, rec.Step), payload); err != nil {
		return err
	}
	return h.db.Put(append(append([]byte(nil), runIndexPrefix...), rec.Run...), []byte(rec.Run))
}

// Steps returns the records of run in step order.
func (h *History) Steps(run string) ([]StepRecord, error) {
	if err := validRun(run); err != nil {
		return nil, err
	}
	prefix := append(append([]byte(nil), runStepPrefix...), run+"/"...)
	var (
		out     []StepRecord
		iterErr error
	)
	err := h.db.Iterate(prefix, func(_, value []byte) bool {
		var rec StepRecord
		if iterErr = json.Unmarshal(value, &rec); iterErr != nil {
			return false
		}
		out = append(out, rec)
		return true
	})
	if err != nil {
		return nil, err
	}
	if iterErr != nil {
		return nil, fmt.Errorf("history: decode %s: %w", run, iterErr)
	}
	return out, nil
}

// Runs lists every recorded run name in lexical order.
func (h *History) Runs() ([]string, error) {
	var runs []string
	err := h.db.Iterate(runIndexPrefix, func(_, value []byte) bool {
		runs = append(runs, string(value))
		return true
	})
	return runs, err
}
