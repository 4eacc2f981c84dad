// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"go.chromium.org/isolate/internal/testresult"
)

// JUnitXMLFilename is a file name to be used with WriteJUnitXMLResults.
const JUnitXMLFilename = "results.xml"

// testSuites is the top level XML element of JUnit result.
type testSuites struct {
	XMLName   xml.Name
	TestSuite testSuite `xml:"testsuite"`
}

// testSuite is an XML element in JUnit result.
type testSuite struct {
	TestCase []*testCase `xml:"testcase"`

	Tests    int `xml:"tests,attr"`
	Errors   int `xml:"errors,attr"`
	Failures int `xml:"failures,attr"`
	Skipped  int `xml:"skipped,attr"`
}

// testCase is an element in JUnit XML test result.
type testCase struct {
	Name       string `xml:"name,attr"`
	Status     string `xml:"status,attr"`         // run or notrun
	Result     string `xml:"result,attr"`         // more detailed result
	Timestamp  string `xml:"timestamp,attr"`      // start time, in ISO8601
	Time       string `xml:"time,attr,omitempty"` // duration, in seconds (with a decimal point)
	Assertions int    `xml:"assertions,attr"`

	Error   []*problem `xml:"error,omitempty"`
	Failure []*problem `xml:"failure,omitempty"`
	Skipped *skipped   `xml:"skipped,omitempty"`
}

// problem is an error or failure element of a test case.
type problem struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Details string `xml:",cdata"`
}

// skipped is an element in JUnit XML test result, representing a skipped
// or incomplete test case.
type skipped struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
}

func newProblems(ps []testresult.Problem) []*problem {
	var res []*problem
	for _, p := range ps {
		typ := ""
		if p.Err() != nil {
			typ = fmt.Sprintf("%T", p.Err())
		}
		res = append(res, &problem{
			Message: p.Reason,
			Type:    typ,
			Details: fmt.Sprintf("%s:%d\n%s", p.File, p.Line, p.Stack),
		})
	}
	return res
}

// WriteJUnitXMLResults saves entries to path in the JUnit XML format.
// Errors are reported as <error> and failed assertions as <failure>.
func WriteJUnitXMLResults(path string, entries []*testresult.Entry) error {
	suites := testSuites{
		XMLName: xml.Name{Local: "testsuites"},
		TestSuite: testSuite{
			Tests: len(entries),
		},
	}
	suite := &suites.TestSuite
	for _, e := range entries {
		tc := &testCase{
			Name:       e.Name,
			Status:     "run",
			Result:     "completed",
			Timestamp:  e.Start.UTC().Format(time.RFC3339),
			Time:       fmt.Sprintf("%.3f", e.Elapsed.Seconds()),
			Assertions: e.Assertions,
		}
		switch e.Status() {
		case testresult.StatusSkip:
			tc.Status, tc.Result = "notrun", "skipped"
			tc.Skipped = &skipped{Message: e.SkipReason}
			suite.Skipped++
		case testresult.StatusIncomplete:
			tc.Status, tc.Result = "notrun", "incomplete"
			tc.Skipped = &skipped{Message: e.Errors[0].Reason, Type: "incomplete"}
			suite.Skipped++
		case testresult.StatusFail:
			tc.Failure = newProblems(e.Failures)
			tc.Error = newProblems(e.Errors)
			suite.Failures++
		case testresult.StatusError:
			tc.Error = newProblems(e.Errors)
			suite.Errors++
		}
		suite.TestCase = append(suite.TestCase, tc)
	}

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
