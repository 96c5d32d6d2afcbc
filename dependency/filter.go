// SPDX-License-Identifier: Apache-2.0

package dependency

// FilterExportable returns the dependencies exposed to Kotlin. Binaries are
// kept when exported; packages are kept, as copies narrowed to their
// exported products, when at least one product is exported. deps is not
// modified.
func FilterExportable(deps []Dependency) []Dependency {
	f := &exportFilter{}
	for _, d := range deps {
		// the visitor never fails
		_ = d.Accept(f)
	}
	return f.out
}

type exportFilter struct {
	out []Dependency
}

func (f *exportFilter) VisitLocalBinary(d *LocalBinary) error {
	if d.ExportToKotlin {
		f.out = append(f.out, d.clone())
	}
	return nil
}

func (f *exportFilter) VisitRemoteBinary(d *RemoteBinary) error {
	if d.ExportToKotlin {
		f.out = append(f.out, d.clone())
	}
	return nil
}

func (f *exportFilter) VisitLocalPackage(d *LocalPackage) error {
	products := d.Products.Exportable()
	if len(products) == 0 {
		return nil
	}
	c := d.clone().(*LocalPackage)
	c.Products = products
	f.out = append(f.out, c)
	return nil
}

func (f *exportFilter) VisitRemotePackage(d *RemotePackage) error {
	products := d.Products.Exportable()
	if len(products) == 0 {
		return nil
	}
	c := d.clone().(*RemotePackage)
	c.Products = products
	f.out = append(f.out, c)
	return nil
}
