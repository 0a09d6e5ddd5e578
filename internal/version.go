package internal

// Version is the current ordkort version
const Version = "0.3.0"
