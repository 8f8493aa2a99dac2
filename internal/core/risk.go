package core

// RiskLevel classifies whether a command needs human approval.
type RiskLevel string

const (
	// RiskNormal commands run immediately.
	RiskNormal RiskLevel = "normal"
	// RiskHigh commands wait in the approval queue.
	RiskHigh RiskLevel = "high"
)

// highRisk is the closed set of actions that require approval.
var highRisk = map[Action]bool{
	ActionChangeTheme:    true,
	ActionInstallLibrary: true,
	ActionShutdownSystem: true,
}

// RiskOf returns the risk level for an action.
func RiskOf(a Action) RiskLevel {
	if highRisk[a] {
		return RiskHigh
	}
	return RiskNormal
}

// HighRiskActions returns the actions that require approval, in declaration order.
func HighRiskActions() []Action {
	out := make([]Action, 0, len(highRisk))
	for _, a := range AllActions() {
		if highRisk[a] {
			out = append(out, a)
		}
	}
	return out
}
