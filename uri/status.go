package uri

import "strconv"

// Status is the result of a URI operation.
// Negative values are failures and are returned as errors,
// positive values are informational and accompany a successful result.
type Status int

const (
	StatusOverflow        Status = -8 // URI buffer overflow
	StatusBadArguments    Status = -7 // bad arguments to function
	StatusBadResource     Status = -6 // bad resource in URI
	StatusBadPort         Status = -5 // bad port number in URI
	StatusBadHostname     Status = -4 // bad hostname/address in URI
	StatusBadUsername     Status = -3 // bad username/password in URI
	StatusBadScheme       Status = -2 // bad scheme in URI
	StatusBadURI          Status = -1 // bad/empty URI
	StatusOK              Status = 0  // URI decoded OK
	StatusMissingScheme   Status = 1  // missing scheme in URI
	StatusUnknownScheme   Status = 2  // unknown scheme in URI
	StatusMissingResource Status = 3  // missing resource in URI
)

var statusStrings = map[Status]string{
	StatusOverflow:        "URI too large",
	StatusBadArguments:    "Bad arguments to function",
	StatusBadResource:     "Bad resource in URI",
	StatusBadPort:         "Bad port number in URI",
	StatusBadHostname:     "Bad hostname/address in URI",
	StatusBadUsername:     "Bad username in URI",
	StatusBadScheme:       "Bad scheme in URI",
	StatusBadURI:          "Bad/empty URI",
	StatusOK:              "OK",
	StatusMissingScheme:   "Missing scheme in URI",
	StatusUnknownScheme:   "Unknown scheme in URI",
	StatusMissingResource: "Missing resource in URI",
}

// String returns a short description of the status.
func (s Status) String() string {
	if str, ok := statusStrings[s]; ok {
		return str
	}
	return "Unknown (" + strconv.Itoa(int(s)) + ")"
}

// Error implements the error interface.
func (s Status) Error() string { return "uri: " + s.String() }

// Failed reports whether s is a failure status.
func (s Status) Failed() bool { return s < StatusOK }

// Coding selects the URI components that are percent-encoded by [Assemble]
// or percent-decoded by [Separate].
type Coding uint

const (
	CodingNone     Coding = 0      // don't encode or decode
	CodingUsername Coding = 1 << 0 // encode or decode the username
	CodingPassword Coding = 1 << 1 // encode or decode the password
	CodingHostname Coding = 1 << 2 // encode or decode the hostname
	CodingResource Coding = 1 << 3 // encode or decode the resource path
	CodingQuery    Coding = 1 << 4 // encode or decode the query string
	CodingRFC6874  Coding = 1 << 5 // use RFC 6874 encoding of IPv6 zone identifiers

	CodingMost = CodingUsername | CodingPassword | CodingHostname | CodingResource
	CodingAll  = CodingMost | CodingQuery
)

func (c Coding) has(f Coding) bool { return c&f != 0 }
