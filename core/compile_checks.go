package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ OrderLedger     = (*MemoryOrderLedger)(nil)
	_ UserDirectory   = (*MemoryOrderLedger)(nil)
	_ ConfigProvider  = (*CfgxConfigProvider)(nil)
	_ OptionsResolver = GoOptionsResolver{}
	_ RawConfigLoader = YAMLFileLoader{}
	_ RawConfigLoader = EnvLoader{}
	_ RawConfigLoader = ChainLoader{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
