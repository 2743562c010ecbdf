// Package code produces self-verifying bearer codes.
//
// Access codes are long random values carrying their own full-length MAC, so a
// forged code is rejected before any storage lookup. LookupID turns an access
// code into a stable index that reveals nothing usable about the code itself.
//
// Address codes are short base32 values bound to an identifier (a user name and
// optionally a device id). Their 40-bit tag trades forgery resistance for
// compactness; verification must stay behind the account lockout wrapper.
package code
