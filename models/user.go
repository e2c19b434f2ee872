package models

// OperatorSession is what a station knows about the signed-in operator.
type OperatorSession struct {
	Brand string `json:"brand"`
}

type SignInRequest struct {
	Brand string `json:"brand" form:"brand" binding:"required"`
}
