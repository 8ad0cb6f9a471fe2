package signal

import (
	"github.com/hexmire/subtail/infrastructure/logger"
)

var kasdLog, _ = logger.Get(logger.SubsystemTags.KASD)
