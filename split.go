package spdata

// Split partitions entry names into train, validation and test sets by
// position in name order: the first floor(train*n) names train, the next
// floor(val*n) validate and the rest test. The result depends only on the
// manifest contents.
func (d *Dataset) Split(train, val float64) (trainNames, valNames, testNames []string, err error) {
	if !(train >= 0 && train <= 1) {
		return nil, nil, nil, &ConfigError{Field: "train", Value: train, Reason: "must be in [0, 1]"}
	}
	if !(val >= 0 && val <= 1) {
		return nil, nil, nil, &ConfigError{Field: "val", Value: val, Reason: "must be in [0, 1]"}
	}
	if train+val > 1 {
		return nil, nil, nil, &ConfigError{Field: "train+val", Value: train + val, Reason: "must not exceed 1"}
	}

	n := len(d.names)
	nTrain := int(train * float64(n))
	nVal := int(val * float64(n))
	if nTrain+nVal > n {
		nVal = n - nTrain
	}

	names := d.Names()
	return names[:nTrain:nTrain], names[nTrain : nTrain+nVal : nTrain+nVal], names[nTrain+nVal:], nil
}
