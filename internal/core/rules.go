package core

// NewDefaultRulesEngine builds an engine with the built-in rule set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewOccupancyRangeRule())
	engine.Register(NewCellConsistencyRule())
	engine.Register(NewPhaseLinkIntegrityRule())
	engine.Register(NewUniqueAtomLabelsRule())
	return engine
}
