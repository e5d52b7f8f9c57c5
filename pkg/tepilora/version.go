package tepilora

// Version is the SDK version reported in the User-Agent header and
// compared against the server's X-Tepilora-Min-SDK-Version hint.
const Version = "0.3.0"
