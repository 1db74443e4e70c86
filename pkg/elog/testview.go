package elog

// NilView is a View implementation that discards everything. Packages
// across the core engine accept an elog.View so their tests can pass
// NilView{} instead of standing up a real terminal logger.
type NilView struct{}

func (NilView) Debugf(format string, x ...interface{}) {}
func (NilView) Errorf(format string, x ...interface{}) {}
func (NilView) Infof(format string, x ...interface{})  {}
func (NilView) Printf(format string, x ...interface{}) {}
func (NilView) Warnf(format string, x ...interface{})  {}
func (NilView) IsInfoEnabled() bool                    { return false }
func (NilView) IsDebugEnabled() bool                   { return false }

func (NilView) NewProgress(label string, units string, total int64) Progress {
	return &nilProgress{total: total}
}
