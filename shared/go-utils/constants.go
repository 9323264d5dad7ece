package utils

const (
	OrganizationName                      = "Poof"
	CORSLowSecurityAllowedOriginLocalhost = "http://localhost:*"

	// Phones with this prefix are accepted without delivery when the
	// accept_fake_phones flag is on; they always receive FakeVerificationCode.
	TestPhoneNumberBase  = "+99890000"
	FakeVerificationCode = "00000"
)
