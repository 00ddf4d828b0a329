package usecase

// StepDone is exported for testing
var StepDone = stepDone

// Translate is exported for testing
var Translate = translate
