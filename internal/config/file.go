package config

// File represents the structure of the .formcourier configuration file.
//
//	input: sites.txt
//	contact:
//	  email: sales@example.com
//	  phone: "+1 555 0100"
//	  message: |
//	    Hello, ...
//	delay: 3
//	timeout: 60
//	engine: rod
//	browser:
//	  headless: true
type File struct {
	// Input is the default URL list path.
	Input string `yaml:"input,omitempty"`

	// Contact holds the values typed into every form.
	Contact ContactSection `yaml:"contact,omitempty"`

	// Delay is the pause between sites in seconds. A pointer so that 0 can be set.
	Delay *int `yaml:"delay,omitempty"`

	// Timeout is the navigation timeout in seconds.
	Timeout int `yaml:"timeout,omitempty"`

	// ResultsFile overrides the results log path.
	ResultsFile string `yaml:"resultsFile,omitempty"`

	// Engine selects "rod" or "static".
	Engine string `yaml:"engine,omitempty"`

	// Browser tunes the browser engine.
	Browser BrowserSection `yaml:"browser,omitempty"`
}

// ContactSection is the contact block of the config file.
type ContactSection struct {
	Email   string `yaml:"email,omitempty"`
	Phone   string `yaml:"phone,omitempty"`
	Message string `yaml:"message,omitempty"`
}

// BrowserSection is the browser block of the config file.
type BrowserSection struct {
	// Bin is the Chromium executable path.
	Bin string `yaml:"bin,omitempty"`

	// Headless runs Chromium without a window. Defaults to true.
	Headless *bool `yaml:"headless,omitempty"`

	// UserAgent overrides the user agent.
	UserAgent string `yaml:"userAgent,omitempty"`
}
