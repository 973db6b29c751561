package meter

import "github.com/voxassist/voxassist"

// NoopMeter is a meter that does nothing.
type NoopMeter struct{}

var _ voxassist.Meter = (*NoopMeter)(nil)

func (m *NoopMeter) OnTurn(voxassist.TurnEvent)         {}
func (m *NoopMeter) OnResult(voxassist.TurnResultEvent) {}
