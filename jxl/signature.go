package jxl

import "bytes"

// Signature classifies the leading bytes of a file
type Signature int

const (
	SignatureNotEnoughBytes Signature = iota
	SignatureInvalid
	SignatureCodestream
	SignatureContainer
)

func (s Signature) String() string {
	switch s {
	case SignatureNotEnoughBytes:
		return "NotEnoughBytes"
	case SignatureInvalid:
		return "Invalid"
	case SignatureCodestream:
		return "Codestream"
	case SignatureContainer:
		return "Container"
	default:
		return "Signature(?)"
	}
}

// SignatureCheck classifies data as a bare codestream, a container, not a
// JPEG XL file, or too short to tell
func SignatureCheck(data []byte) Signature {
	if len(data) == 0 {
		return SignatureNotEnoughBytes
	}
	switch data[0] {
	case CodestreamSignature[0]:
		if len(data) < 2 {
			return SignatureNotEnoughBytes
		}
		if data[1] == CodestreamSignature[1] {
			return SignatureCodestream
		}
		return SignatureInvalid
	case ContainerSignature[0]:
		n := len(ContainerSignature)
		if len(data) < n {
			if bytes.Equal(data, ContainerSignature[:len(data)]) {
				return SignatureNotEnoughBytes
			}
			return SignatureInvalid
		}
		if bytes.Equal(data[:n], ContainerSignature[:]) {
			return SignatureContainer
		}
	}
	return SignatureInvalid
}
