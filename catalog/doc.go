// Package catalog records published fingerprint databases.
//
// Each publish of a db_key gets the next version number. The DynamoDB
// implementation uses a conditional write so concurrent publishers of the
// same db_key never share a version.
//
// Table schema:
//   - Partition key: db_key (string)
//   - Sort key: version (number)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name fpdb-catalog \
//	  --attribute-definitions AttributeName=db_key,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=db_key,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package catalog
