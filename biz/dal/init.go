package dal

import (
	"profitshare-hertz/biz/dal/kafka"
	"profitshare-hertz/biz/dal/pg"
	"profitshare-hertz/biz/dal/redis"
)

func Init() {
	pg.Init()
	redis.Init()
	kafka.Init()
}
