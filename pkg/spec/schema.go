package spec

import "encoding/xml"

// Document is the on-disk shape of a specification. The same
// structure is read from XML:
//
//	<testconf language="c">
//	  <build score="10"><flags>-Wall -O2</flags></build>
//	  <testbeds>
//	    <testbed name="Sums" score="40" type="proportional" onerror="continue">
//	      <testrun args="1 2" cout="3" retval="0" timeout="2"/>
//	      ...
//	    </testbed>
//	  </testbeds>
//	</testconf>
//
// and from YAML or JSON, where testbeds and testruns are lists.
type Document struct {
	XMLName  xml.Name      `xml:"testconf" yaml:"-"`
	Language string        `xml:"language,attr" yaml:"language" validate:"required"`
	Build    *BuildSection `xml:"build" yaml:"build"`
	Testbeds []TestbedDoc  `xml:"testbeds>testbed" yaml:"testbeds" validate:"dive"`
}

// BuildSection configures the build step.
type BuildSection struct {
	// Tool overrides the language's default compiler.
	Tool  string  `xml:"tool,attr,omitempty" yaml:"tool"`
	Score float64 `xml:"score,attr" yaml:"score" validate:"gte=0"`
	// Flags are split on whitespace and passed to the compiler.
	Flags string `xml:"flags" yaml:"flags"`
}

// TestbedDoc declares one testbed.
type TestbedDoc struct {
	Name    string       `xml:"name,attr" yaml:"name"`
	Score   float64      `xml:"score,attr" yaml:"score" validate:"gte=0"`
	Type    string       `xml:"type,attr" yaml:"type" validate:"omitempty,oneof=all-or-nothing proportional"`
	OnError string       `xml:"onerror,attr" yaml:"onerror" validate:"omitempty,oneof=continue skip abort halt"`
	Runs    []TestRunDoc `xml:"testrun" yaml:"testruns" validate:"dive"`
}

// TestRunDoc declares one test run. Cout, Cerr and Retval hold
// assertion text; empty text means no check.
type TestRunDoc struct {
	Args    string   `xml:"args,attr" yaml:"args"`
	Cout    string   `xml:"cout,attr" yaml:"cout"`
	Cerr    string   `xml:"cerr,attr" yaml:"cerr"`
	Retval  string   `xml:"retval,attr" yaml:"retval"`
	Timeout *float64 `xml:"timeout,attr" yaml:"timeout" validate:"omitempty,gt=0"`
}
