// Package dnssd defines the DNS-SD service discovery contract used to resolve
// service instance URIs and provides [Client], an implementation built on
// multicast DNS for the "local." domain and unicast DNS for wide-area domains.
//
// Service instances are addressed by their full name
// "<instance>.<service>._tcp.<domain>", see [SeparateFullName] and [AssembleFullName].
// TXT record keys are interned in the process-wide string pool.
package dnssd
