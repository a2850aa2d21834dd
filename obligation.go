package detkernel

// obligationEntity is a linearity token that must be resolved exactly
// once (Committed or Aborted) before its owning region closes;
// unresolved obligations are discovered Leaked at region finalization
// (spec §3, §8 invariant 3).
type obligationEntity struct {
	region Handle
	state  ObligationState
}

// newObligationEntity constructs an obligation reserved against
// region (spec: obligation.reserve).
func newObligationEntity(region Handle) *obligationEntity {
	return &obligationEntity{region: region, state: ObligationReserved}
}

// commit resolves the obligation as Committed. Returns
// StatusObligationAlreadyResolved if it is not in Reserved.
func (o *obligationEntity) commit() error {
	return o.resolve(ObligationCommitted)
}

// abort resolves the obligation as Aborted. Returns
// StatusObligationAlreadyResolved if it is not in Reserved.
func (o *obligationEntity) abort() error {
	return o.resolve(ObligationAborted)
}

// leak force-resolves the obligation as Leaked, called only by region
// finalization when it was never committed or aborted.
func (o *obligationEntity) leak() error {
	return o.resolve(ObligationLeaked)
}

func (o *obligationEntity) resolve(to ObligationState) error {
	if o.state != ObligationReserved {
		return NewFault(StatusObligationAlreadyResolved, "Obligation.Resolve", o.state.String()+"->"+to.String())
	}
	if err := validateObligationTransition(o.state, to); err != nil {
		return err
	}
	o.state = to
	return nil
}

// getState returns the obligation's current lifecycle state.
func (o *obligationEntity) getState() ObligationState { return o.state }
