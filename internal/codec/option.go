package codec

// Option describes one user-tunable adapter setting.
type Option struct {
	Name        string
	Description string
	Default     any
}

// Options is the declared option list of an adapter.
type Options []Option

// OptionSet is the default option storage embedded by adapter
// implementations. The zero value declares no options.
type OptionSet struct {
	declared Options
	values   map[string]any
}

// DeclareOptions installs the option list, resetting all values to defaults.
func (s *OptionSet) DeclareOptions(opts Options) {
	s.declared = opts
	s.values = make(map[string]any, len(opts))
}

// Options returns the declared option list.
func (s *OptionSet) Options() Options {
	return s.declared
}

// OptionValue returns the current value of an option, falling back to its
// declared default. Unknown names return nil.
func (s *OptionSet) OptionValue(name string) any {
	if v, ok := s.values[name]; ok {
		return v
	}
	for _, o := range s.declared {
		if o.Name == name {
			return o.Default
		}
	}
	return nil
}

// SetOptionValue stores a value for a declared option. Unknown names are
// ignored.
func (s *OptionSet) SetOptionValue(name string, value any) {
	for _, o := range s.declared {
		if o.Name == name {
			if s.values == nil {
				s.values = make(map[string]any)
			}
			s.values[name] = value
			return
		}
	}
}
