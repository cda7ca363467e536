// Copyright 2026 The Cockroach Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package testcat

// SampleSchema declares a customer/order/item/address table group and an
// ungrouped product table.
const SampleSchema = `
tables:
  - name: customer
    columns:
      - {name: id, type: int}
      - {name: name, type: string, nullable: true}
      - {name: region, type: string, nullable: true}
    primary_key: [id]
    indexes:
      - {name: customer_name, columns: [name], unique: true}
      - {name: customer_region, columns: [region]}
  - name: order
    columns:
      - {name: id, type: int}
      - {name: customer_id, type: int}
      - {name: total, type: decimal, nullable: true}
      - {name: status, type: string, nullable: true}
    primary_key: [id]
    parent: customer
    parent_key: [customer_id]
    indexes:
      - {name: order_customer, columns: [customer_id]}
      - {name: order_status, columns: [status, total]}
  - name: item
    columns:
      - {name: id, type: int}
      - {name: order_id, type: int}
      - {name: sku, type: string, nullable: true}
      - {name: qty, type: int, nullable: true}
      - {name: price, type: float, nullable: true}
    primary_key: [id]
    parent: order
    parent_key: [order_id]
  - name: address
    columns:
      - {name: id, type: int}
      - {name: customer_id, type: int}
      - {name: city, type: string, nullable: true}
    primary_key: [id]
    parent: customer
    parent_key: [customer_id]
  - name: product
    columns:
      - {name: sku, type: string}
      - {name: name, type: string, nullable: true}
      - {name: price, type: float, nullable: true}
    primary_key: [sku]
`

// NewSample returns a finished catalog built from SampleSchema.
func NewSample() *Catalog {
	return MustLoadYAML(SampleSchema)
}
