package detector

var ParseResponse = parseResponse
