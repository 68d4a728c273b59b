package factory

import (
	"github.com/allape/gogger"
)

var l = gogger.New("factory")
