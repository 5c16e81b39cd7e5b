package collector

// Observers fans progress out to several observers. Nil entries are skipped.
func Observers(obs ...Observer) Observer {
	list := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			list = append(list, o)
		}
	}
	return list
}

type multiObserver []Observer

func (m multiObserver) OnCycle(stats CycleStats) {
	for _, o := range m {
		o.OnCycle(stats)
	}
}

func (m multiObserver) OnStop(stats CycleStats, reason StopReason) {
	for _, o := range m {
		o.OnStop(stats, reason)
	}
}

// ObserverFuncs adapts plain functions to Observer. Either may be nil.
type ObserverFuncs struct {
	Cycle func(CycleStats)
	Stop  func(CycleStats, StopReason)
}

func (f ObserverFuncs) OnCycle(stats CycleStats) {
	if f.Cycle != nil {
		f.Cycle(stats)
	}
}

func (f ObserverFuncs) OnStop(stats CycleStats, reason StopReason) {
	if f.Stop != nil {
		f.Stop(stats, reason)
	}
}
