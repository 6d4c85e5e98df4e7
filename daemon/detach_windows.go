package daemon

func detachProcess(dir, errorLog string) error {
	return nil
}
