package tui

// Option configures a Flow.
type Option func(*Flow)

// WithPromptDriver overrides the prompt driver, mainly so tests can script
// responses without a terminal.
func WithPromptDriver(driver PromptDriver) Option {
	return func(f *Flow) {
		if driver != nil {
			f.driver = driver
		}
	}
}
