package wifi

// Strategy selects how the process reaches the device network.
type Strategy int

const (
	// StrategyScoped joins the network without making it the default route
	// and binds device connections to its interface.
	StrategyScoped Strategy = iota

	// StrategyLegacy joins the network and relies on default routing.
	StrategyLegacy
)

// String returns the strategy name
func (s Strategy) String() string {
	switch s {
	case StrategyScoped:
		return "scoped"
	case StrategyLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// DetectStrategy picks the strategy supported by this platform.
func DetectStrategy() Strategy {
	if interfaceBindingSupported {
		return StrategyScoped
	}
	return StrategyLegacy
}
