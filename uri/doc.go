// Package uri assembles and separates URIs in caller-supplied fixed-size buffers.
//
// All buffer functions write NUL-terminated output and never write past the end
// of the buffer; on a hard failure the output is left empty. Failures are reported
// as [Status] values, which implement error:
//
//	n, err := uri.Assemble(buf, uri.CodingAll, "ipp", "", "printer.local", 631, "/ipp/print")
//	if errors.Is(err, uri.StatusOverflow) {
//		// buf is too small
//	}
//
// [Separate] reports soft statuses such as [StatusMissingScheme] with a nil error
// after filling in the defaults.
//
// [Resolver] turns DNS-SD service instance URIs into URIs with a host name and a port
// using a [dnssd.Discoverer].
package uri
