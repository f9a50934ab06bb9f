package reinforcement

import (
	"rlsim/models"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// QTable holds one estimate per state-action pair, sized to the full state
// space up front and zero-initialized.
type QTable struct {
	values *mat.Dense
}

// NewQTable returns a zeroed numStates x numActions table.
func NewQTable(numStates, numActions int) *QTable {
	return &QTable{
		values: mat.NewDense(numStates, numActions, nil),
	}
}

// Dims returns the number of states and actions.
func (q *QTable) Dims() (states, actions int) {
	return q.values.Dims()
}

func (q *QTable) Get(s models.State, a models.Action) float64 {
	return q.values.At(int(s), int(a))
}

func (q *QTable) Set(s models.State, a models.Action, val float64) {
	q.values.Set(int(s), int(a), val)
}

// Add adds delta to Q(s,a) and returns the new estimate.
func (q *QTable) Add(s models.State, a models.Action, delta float64) float64 {
	val := q.Get(s, a) + delta
	q.Set(s, a, val)
	return val
}

// Max returns max_a Q(s,a).
func (q *QTable) Max(s models.State) float64 {
	return floats.Max(q.values.RawRowView(int(s)))
}

// ArgMax returns the best action for s, preferring the lowest action index on ties.
func (q *QTable) ArgMax(s models.State) models.Action {
	return models.Action(floats.MaxIdx(q.values.RawRowView(int(s))))
}

// Row returns a copy of the action estimates for s.
func (q *QTable) Row(s models.State) []float64 {
	return mat.Row(nil, int(s), q.values)
}

// Rows returns a copy of the whole table, indexed [state][action].
func (q *QTable) Rows() [][]float64 {
	n, _ := q.Dims()
	rows := make([][]float64, n)
	for s := range rows {
		rows[s] = q.Row(models.State(s))
	}
	return rows
}

// Zero resets every estimate to zero.
func (q *QTable) Zero() {
	q.values.Zero()
}

// VTable holds one estimate per state.
type VTable struct {
	values *mat.VecDense
}

// NewVTable returns a zeroed table over numStates states.
func NewVTable(numStates int) *VTable {
	return &VTable{
		values: mat.NewVecDense(numStates, nil),
	}
}

func (v *VTable) Len() int {
	return v.values.Len()
}

func (v *VTable) Get(s models.State) float64 {
	return v.values.AtVec(int(s))
}

func (v *VTable) Set(s models.State, val float64) {
	v.values.SetVec(int(s), val)
}

// Values returns a copy of the estimates, indexed by state.
func (v *VTable) Values() []float64 {
	return mat.Col(nil, 0, v.values)
}

// Clone returns an independent copy of the table.
func (v *VTable) Clone() *VTable {
	return &VTable{
		values: mat.VecDenseCopyOf(v.values),
	}
}

// CopyFrom overwrites every estimate with those of src.
func (v *VTable) CopyFrom(src *VTable) {
	v.values.CopyVec(src.values)
}

// Zero resets every estimate to zero.
func (v *VTable) Zero() {
	v.values.Zero()
}
