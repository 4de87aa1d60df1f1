package dicelang

//RollOption configures a single ParseAndRoll call.
type RollOption func(*RollOptions)

//RollOptions holds the resolved options for a ParseAndRoll call.
type RollOptions struct {
	Roller    Roller
	Limits    Limits
	Advantage AdvantageMode
}

//RollOptionWithRoller supplies an alternate randomness source.
func RollOptionWithRoller(roller Roller) RollOption {
	return func(o *RollOptions) {
		o.Roller = roller
	}
}

//RollOptionWithLimits supplies alternate dice-term bounds.
func RollOptionWithLimits(limits Limits) RollOption {
	return func(o *RollOptions) {
		o.Limits = limits
	}
}

//RollOptionWithAdvantage forces an advantage mode. A trailing
//"with advantage"/"with disadvantage" phrase in the notation itself takes
//precedence over this option.
func RollOptionWithAdvantage(mode AdvantageMode) RollOption {
	return func(o *RollOptions) {
		o.Advantage = mode
	}
}

//ParseAndRoll is the composed convenience call most callers use: parse the
//raw notation, resolve every dice term, and fold the arithmetic. Each
//invocation is independent; the engine holds no cross-call state.
func ParseAndRoll(raw string, options ...RollOption) (*RollResult, error) {
	opts := RollOptions{
		Roller:    CryptoRoller{},
		Limits:    DefaultLimits,
		Advantage: AdvantageNone,
	}
	for _, o := range options {
		o(&opts)
	}
	stripped, mode := StripAdvantagePhrase(raw)
	if mode == AdvantageNone {
		mode = opts.Advantage
	}
	root, err := ParseWithLimits(stripped, mode, opts.Limits)
	if err != nil {
		return nil, err
	}
	return Evaluate(root, opts.Roller)
}
